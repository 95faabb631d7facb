package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drover/internal/turn"
)

func TestRootCommandSurface(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"run", "tools", "trust", "check"} {
		assert.True(t, names[want], "missing command %q", want)
	}
}

func TestCheckCommand(t *testing.T) {
	require.NoError(t, checkCommand(checkCmd, []string{"git", "status"}))

	err := checkCommand(checkCmd, []string{"echo hi; rm -rf /"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rejected")
}

func TestConsoleSink_FlushKeepsOrder(t *testing.T) {
	sink := &consoleSink{}
	first := sink.AddItem(turn.MessageItem{}, time.Now())
	sink.AddItem(turn.ToolGroupItem{}, time.Now())
	second := sink.AddItem(turn.MessageItem{}, time.Now())

	sink.UpdateItem(first, func(any) any { return turn.MessageItem{Text: "one", Complete: true} })
	sink.UpdateItem(second, func(any) any { return turn.MessageItem{Text: "two", Complete: true} })

	require.Len(t, sink.items, 3)
	assert.Equal(t, "one", sink.items[0].(turn.MessageItem).Text)
	assert.Equal(t, "two", sink.items[2].(turn.MessageItem).Text)
}
