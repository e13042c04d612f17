package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/odvcencio/furry-store/devtools"
)

type watchOptions struct {
	url     string
	store   string
	count   int
	color   bool
	style   string
	record  string
	compact bool
}

func newWatchCmd() *cobra.Command {
	opts := watchOptions{}
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream store transitions from a running app",
		Long: `Connects to a devtools hub and prints every state the connected stores
publish. New connections first receive the latest state of each store.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := getLogger(cmd)
			out := cmd.OutOrStdout()

			var record io.Writer
			if opts.record != "" {
				f, err := os.OpenFile(opts.record, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
				if err != nil {
					return fmt.Errorf("open record file: %w", err)
				}
				defer f.Close()
				record = f
			}

			seen := 0
			err := watch(cmd.Context(), opts.url, logger, func(ev devtools.Event) error {
				if opts.store != "" && ev.Store != opts.store {
					return nil
				}
				if record != nil {
					if err := json.NewEncoder(record).Encode(ev); err != nil {
						return fmt.Errorf("record event: %w", err)
					}
				}
				if err := formatEvent(out, ev, opts); err != nil {
					return err
				}
				seen++
				if opts.count > 0 && seen >= opts.count {
					return errStop
				}
				return nil
			})
			if errors.Is(err, errStop) || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&opts.url, "url", "ws://"+devtools.DefaultAddr+devtools.DefaultPath, "Devtools websocket URL")
	cmd.Flags().StringVar(&opts.store, "store", "", "Only show this store")
	cmd.Flags().IntVarP(&opts.count, "count", "n", 0, "Exit after this many events (0 = forever)")
	cmd.Flags().BoolVar(&opts.color, "color", true, "Highlight state JSON")
	cmd.Flags().StringVar(&opts.style, "style", "monokai", "Highlight style")
	cmd.Flags().StringVar(&opts.record, "record", "", "Append received events to this JSON lines file")
	cmd.Flags().BoolVar(&opts.compact, "compact", false, "Print state on one line")
	return cmd
}

var errStop = errors.New("stop")

// watch reads events from url until handle returns an error, the
// connection drops or ctx is cancelled.
func watch(ctx context.Context, url string, logger *logrus.Entry, handle func(devtools.Event) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("connect %s: %w", url, err)
	}
	defer conn.Close()
	logger.WithField("url", url).Debug("connected")

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		var ev devtools.Event
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read event: %w", err)
		}
		logger.WithFields(logrus.Fields{"seq": ev.Seq, "store": ev.Store}).Debug("event")
		if err := handle(ev); err != nil {
			return err
		}
	}
}

// formatEvent prints a header line and the state.
func formatEvent(w io.Writer, ev devtools.Event, opts watchOptions) error {
	header := fmt.Sprintf("#%d %s %s", ev.Seq, ev.Type, ev.Store)
	if ev.Action != "" {
		header += " (" + ev.Action + ")"
	}
	if ev.Replace {
		header += " replace"
	}
	if _, err := fmt.Fprintln(w, header); err != nil {
		return err
	}

	raw := []byte(ev.State)
	if len(raw) == 0 {
		raw = []byte("null")
	}
	var buf bytes.Buffer
	if opts.compact {
		if err := json.Compact(&buf, raw); err != nil {
			return fmt.Errorf("format state: %w", err)
		}
	} else if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return fmt.Errorf("format state: %w", err)
	}
	buf.WriteByte('\n')
	if !opts.color {
		_, err := w.Write(buf.Bytes())
		return err
	}
	return highlight(w, buf.String(), opts.style)
}

// highlight writes src as highlighted JSON for a 256-color terminal.
func highlight(w io.Writer, src, style string) error {
	lexer := lexers.Get("json")
	if lexer == nil {
		lexer = lexers.Fallback
	}
	iterator, err := lexer.Tokenise(nil, src)
	if err != nil {
		return fmt.Errorf("highlight: %w", err)
	}
	return formatters.Get("terminal256").Format(w, styles.Get(style), iterator)
}
