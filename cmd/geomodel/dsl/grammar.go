package dsl

// GrammarReference is the statement syntax in the notation used by error
// messages and prompts. Properties marked ? are optional.
const GrammarReference = `ROCK <ID> [
  name: <string>;
  type?: <sedimentary|volcanic|intrusive|metamorphic>;
  age?: <number><Ga|Ma|ka>|"<epoch>"|"?";
]

DEPOSITION <ID> [
  rock: <ID>;
  time?: <number><Ga|Ma|ka>|"<epoch>"|"?";
  after?: <ID>[, <ID>...];
]

EROSION <ID> [
  time?: <number><Ga|Ma|ka>|"<epoch>"|"?";
  after?: <ID>[, <ID>...];
]

INTRUSION <ID> [
  rock: <ID>;
  style?: <dike|sill|stock|batholith>;
  time?: <number><Ga|Ma|ka>|"<epoch>"|"?";
  after?: <ID>[, <ID>...];
]
`

// ExampleProgram is a small valid program covering every statement kind.
const ExampleProgram = `# Porphyry district
ROCK R1 [ name: "Andesitic host"; type: volcanic; age: 40Ma ]
ROCK R2 [ name: "Sedimentary cover"; type: sedimentary; age: 38Ma ]
ROCK R3 [ name: "Quartz diorite porphyry"; type: intrusive; age: 35Ma ]

DEPOSITION D1 [ rock: R1; time: 40Ma ]
DEPOSITION D2 [ rock: R2; time: 38Ma; after: D1 ]
EROSION E1 [ time: 37Ma; after: D2 ]
INTRUSION I1 [ rock: R3; style: stock; time: 35Ma; after: D2, E1 ]
`
