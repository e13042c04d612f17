package runtime

import "context"

// Command is an intent a component returns from HandleMessage for the app
// to carry out. Commands the app does not know go to
// AppConfig.CommandHandler.
type Command interface {
	Command()
}

// PostFunc delivers a message to the app loop. It reports false when the
// message was dropped.
type PostFunc func(Message) bool

// Quit stops the app.
type Quit struct{}

// Refresh repaints every cell on the next frame.
type Refresh struct{}

// Send posts Message back into the loop after the current message.
type Send struct {
	Message Message
}

// Task runs on its own goroutine for as long as ctx lives. The app cancels
// ctx when it stops. Name labels the task in logs.
type Task struct {
	Name string
	Run  func(ctx context.Context, post PostFunc)
}

// Write runs Apply on the app loop. Apply typically sets state on the store
// named by Store; a failure is logged with that name.
type Write struct {
	Store string
	Apply func() error
}

func (Quit) Command()    {}
func (Refresh) Command() {}
func (Send) Command()    {}
func (Task) Command()    {}
func (Write) Command()   {}
