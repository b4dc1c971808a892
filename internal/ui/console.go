package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/desertthunder/ytmigrate/internal/models"
	"github.com/desertthunder/ytmigrate/internal/tasks"
)

// ConsoleOpts configures a [Console]. Nil streams default to the process stdin/stdout.
type ConsoleOpts struct {
	In        io.Reader
	Out       io.Writer
	AssumeYes bool
	Verbose   bool
}

// Console is a line-oriented [tasks.Presenter].
type Console struct {
	mu        sync.Mutex
	in        io.Reader
	out       io.Writer
	assumeYes bool
	verbose   bool
}

func NewConsole(opts ConsoleOpts) *Console {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	return &Console{in: opts.In, out: opts.Out, assumeYes: opts.AssumeYes, verbose: opts.Verbose}
}

// Notify prints one status event.
func (c *Console) Notify(u tasks.ProgressUpdate) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch u.Phase {
	case tasks.TrackState:
		if u.Level == tasks.Info && !c.verbose {
			return
		}
		fmt.Fprintln(c.out, "    "+statusLine(u.Level, u.Message))
		return
	case tasks.ResolvePlaylist:
		if _, ok := u.Data.(models.Playlist); ok {
			fmt.Fprintln(c.out)
			fmt.Fprintln(c.out, styles.Title(fmt.Sprintf("[%d/%d] %s", u.Step, u.Total, u.Message)))
			return
		}
	case tasks.ProcessChunk:
		fmt.Fprintln(c.out, "  "+styles.Help(u.Message))
		return
	}

	fmt.Fprintln(c.out, statusLine(u.Level, u.Message))

	switch data := u.Data.(type) {
	case []models.Playlist:
		fmt.Fprint(c.out, RenderPlaylists(data))
	case *models.RunSummary:
		fmt.Fprintln(c.out)
		fmt.Fprint(c.out, RenderSummary(data))
	}
}

// Confirm answers yes without prompting when the console assumes yes.
func (c *Console) Confirm(ctx context.Context, question string) (bool, error) {
	if c.assumeYes {
		c.mu.Lock()
		fmt.Fprintln(c.out, styles.Title(question)+" "+styles.OK("yes"))
		c.mu.Unlock()
		return true, nil
	}
	return Confirm(ctx, c.in, c.out, question)
}

func statusLine(level tasks.Level, message string) string {
	switch level {
	case tasks.Success:
		return styles.OK("✓") + " " + message
	case tasks.Warning:
		return styles.Warn("! " + message)
	case tasks.Error:
		return styles.Err("✗") + " " + message
	default:
		return "• " + message
	}
}
