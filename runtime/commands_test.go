package runtime

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odvcencio/furry-store/state"
)

type incOnKey struct {
	countView
	store *state.Store[counter]
}

func (v *incOnKey) HandleMessage(msg Message) HandleResult {
	if key, ok := msg.(KeyMsg); ok && key.Rune == '+' {
		return WithCommand(Write{Store: v.store.Name(), Apply: v.store.GetState().Inc})
	}
	return Unhandled()
}

func TestApp_WriteCommand(t *testing.T) {
	hook, store := newCounterHook(t)
	app := NewApp(AppConfig{Root: &incOnKey{countView: countView{hook: hook}, store: store}})
	app.Tree().Resize(20, 1)
	app.Tree().Render()

	DefaultUpdate(app, KeyMsg{Rune: '+'})
	assert.Equal(t, 1, store.GetState().Count)
	assert.True(t, app.Tree().NeedsRender(), "store change invalidates the tree")
}

func TestApp_WriteFailureIsLogged(t *testing.T) {
	logger, hook := test.NewNullLogger()
	app := NewApp(AppConfig{Logger: logrus.NewEntry(logger)})
	boom := errors.New("boom")

	app.ExecuteCommand(Write{Store: "bears", Apply: func() error { return boom }})

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "store write failed", entry.Message)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "bears", entry.Data["store"])
	err, _ := entry.Data[logrus.ErrorKey].(error)
	assert.ErrorIs(t, err, boom)
}

func TestApp_SendAndRefresh(t *testing.T) {
	app := NewApp(AppConfig{})
	app.Tree().Resize(4, 1)
	app.Tree().Buffer().ClearDirty()

	assert.False(t, app.ExecuteCommand(Send{Message: CustomMsg{Value: 7}}), "send does not request a frame")
	assert.Equal(t, CustomMsg{Value: 7}, <-app.messages)
	assert.True(t, app.ExecuteCommand(Refresh{}))
	assert.True(t, app.Tree().Buffer().IsDirty(), "refresh repaints the whole buffer")
}

type ping struct{}

func (ping) Command() {}

func TestApp_CustomCommandHandler(t *testing.T) {
	var got []Command
	app := NewApp(AppConfig{CommandHandler: func(cmd Command) bool {
		got = append(got, cmd)
		return true
	}})
	assert.True(t, app.ExecuteCommand(ping{}))
	assert.False(t, app.ExecuteCommand(nil), "nil command is ignored")
	assert.Len(t, got, 1)
}
