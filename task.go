package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chelnak/ysmrr"
	"github.com/showwin/streamkit/streamkit"
	"github.com/showwin/streamkit/streamkit/control"
)

// TaskManager shows one spinner per pipeline phase. In unix mode it prints
// plain lines instead, and in json mode it stays silent.
type TaskManager struct {
	sm         ysmrr.SpinnerManager
	out        io.Writer
	isOut      bool
	noProgress bool
}

type Task struct {
	spinner *ysmrr.Spinner
	manager *TaskManager
	title   string
}

func InitTaskManager(jsonOutput, unixOutput bool) *TaskManager {
	isOut := !jsonOutput || unixOutput
	tm := &TaskManager{out: os.Stdout, isOut: isOut, noProgress: unixOutput}
	if isOut && !unixOutput {
		tm.sm = ysmrr.NewSpinnerManager()
		tm.sm.Start()
	}
	return tm
}

func (tm *TaskManager) spinning() bool {
	return tm.isOut && !tm.noProgress
}

func (tm *TaskManager) Stop() {
	if tm.spinning() {
		tm.sm.Stop()
	}
}

func (tm *TaskManager) Println(message string) {
	if !tm.isOut {
		return
	}
	if tm.noProgress {
		fmt.Fprintln(tm.out, message)
		return
	}
	task := &Task{manager: tm, spinner: tm.sm.AddSpinner(message)}
	task.Complete()
}

// Start adds a task. Its spinner, if any, keeps running until Complete or
// Fail.
func (tm *TaskManager) Start(title string) *Task {
	task := &Task{manager: tm, title: title}
	if tm.spinning() {
		task.spinner = tm.sm.AddSpinner(title)
	}
	return task
}

func (t *Task) Complete() {
	if t.spinner == nil {
		return
	}
	t.spinner.Complete()
}

func (t *Task) Updatef(format string, a ...any) {
	if t.spinner == nil {
		return
	}
	t.spinner.UpdateMessagef(format, a...)
}

func (t *Task) Printf(format string, a ...any) {
	if !t.manager.isOut {
		return
	}
	if t.manager.noProgress {
		fmt.Fprintf(t.manager.out, format+"\n", a...)
		return
	}
	t.Updatef(format, a...)
}

// Fail marks the task as failed and returns err annotated with its title.
func (t *Task) Fail(err error) error {
	err = fmt.Errorf("%s: %w", strings.ToLower(t.title), err)
	if t.spinner != nil {
		t.spinner.UpdateMessagef("Fatal: %v", err)
		t.spinner.Error()
	}
	return err
}

// Progress returns a subscriber that keeps the task message current, or
// prints one line per sample in unix mode.
func (t *Task) Progress() control.Subscriber {
	return func(s control.Sample) {
		t.Printf("%s: %d bytes, %s (avg %s)", t.title, s.TotalBytes,
			streamkit.ByteRate(s.CurrentSpeed), streamkit.ByteRate(s.AverageSpeed))
	}
}
