package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplSession(t *testing.T) {
	t.Run("accepts a statement", func(t *testing.T) {
		s := newReplSession()
		out, more, quit := s.eval(`ROCK R1 [ name: "Shale" ]`)
		assert.False(t, more)
		assert.False(t, quit)
		assert.Contains(t, out, `ROCK R1 [ name: "Shale"; type: sedimentary ]`)
		assert.Len(t, s.chunks, 1)
	})

	t.Run("continues an open statement", func(t *testing.T) {
		s := newReplSession()
		_, more, _ := s.eval(`ROCK R1 [`)
		require.True(t, more)
		_, more, _ = s.eval(`  name: "Shale";`)
		require.True(t, more)
		out, more, _ := s.eval(`]`)
		assert.False(t, more)
		assert.Contains(t, out, "ROCK R1")
		assert.Empty(t, s.pending)
		require.Len(t, s.chunks, 1)
	})

	t.Run("syntax errors are not kept", func(t *testing.T) {
		s := newReplSession()
		out, more, _ := s.eval(`ROCK R1 [ name: @ ]`)
		assert.False(t, more)
		assert.Contains(t, out, "Unexpected character '@'")
		assert.Empty(t, s.chunks)
	})

	t.Run("blank lines are ignored", func(t *testing.T) {
		s := newReplSession()
		out, more, quit := s.eval("   ")
		assert.Empty(t, out)
		assert.False(t, more || quit)
	})

	t.Run("undo drops the last input", func(t *testing.T) {
		s := newReplSession()
		s.eval(`ROCK R1 [ name: "A" ]`)
		s.eval(`ROCK R2 [ name: "B" ]`)
		out, _, _ := s.eval(":undo")
		assert.Equal(t, "removed last input", out)
		assert.Equal(t, `ROCK R1 [ name: "A"; type: sedimentary ]`, s.show())

		s.eval(":undo")
		out, _, _ = s.eval(":undo")
		assert.Contains(t, out, "nothing to undo")
	})

	t.Run("validate reports semantic errors", func(t *testing.T) {
		s := newReplSession()
		s.eval(`DEPOSITION D1 [ rock: R9 ]`)
		out, _, _ := s.eval(":validate")
		assert.Contains(t, out, "R9")
	})

	t.Run("transform lists groups", func(t *testing.T) {
		s := newReplSession()
		s.chunks = []string{strata}
		out, _, _ := s.eval(":transform")
		assert.Contains(t, out, "D1 → D2 → E1 → D3")
		assert.Contains(t, out, "Group_D3")
		assert.Contains(t, out, "Strata_Group_0")
	})

	t.Run("save and load", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.geo")
		s := newReplSession()
		s.chunks = []string{strata}
		out, _, _ := s.eval(":save " + path)
		assert.Equal(t, "saved "+path, out)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "EROSION E1")

		other := newReplSession()
		out, _, _ = other.eval(":load " + path)
		assert.Contains(t, out, "3 rock(s), 3 deposition(s), 1 erosion(s), 0 intrusion(s)")
		assert.Equal(t, s.show(), other.show())
	})

	t.Run("commands", func(t *testing.T) {
		s := newReplSession()
		out, _, _ := s.eval(":help")
		assert.Contains(t, out, ":transform")

		out, _, _ = s.eval(":load")
		assert.Contains(t, out, "usage")

		out, _, _ = s.eval(":nope")
		assert.Contains(t, out, "unknown command :nope")

		assert.Contains(t, s.show(), "(empty)")

		_, _, quit := s.eval(":quit")
		assert.True(t, quit)
	})
}
