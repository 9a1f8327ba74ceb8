package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/clearcase/worker/internal/assets"
	"github.com/clearcase/worker/internal/pipeline"
)

// Sender enqueues raw message bodies.
type Sender interface {
	Send(ctx context.Context, body []byte) (string, error)
}

// Uploader writes objects to blob storage.
type Uploader interface {
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) error
}

// RegisterFunc records an uploaded object as an asset.
type RegisterFunc func(ctx context.Context, cmd assets.RegisterCommand) (*assets.Asset, error)

// deps are the systems behind the commands. main builds them from config.
type deps struct {
	Queue     Sender
	Store     Uploader
	Register  RegisterFunc
	Scheduler pipeline.ReminderSyncer
	Due       pipeline.DueProcessor
	Out       io.Writer
}

func newCLIApp(d *deps) *cli.App {
	app := &cli.App{
		Name:  "casectl",
		Usage: "ClearCase worker operations",
		Commands: []*cli.Command{
			enqueueCmd(d),
			uploadCmd(d),
			remindersCmd(d),
		},
	}
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

func enqueueCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "enqueue",
		Usage: "Send an asset_uploaded message for an existing asset",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "case", Aliases: []string{"c"}, Required: true, Usage: "Case ID"},
			&cli.StringFlag{Name: "asset", Aliases: []string{"a"}, Required: true, Usage: "Asset ID"},
			&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "User description of the document"},
			&cli.StringFlag{Name: "source-case", Usage: "Case the description was reused from"},
			&cli.BoolFlag{Name: "force-fail", Usage: "Mark the message to fail on every receive"},
		},
		Action: func(c *cli.Context) error {
			caseID, err := parseID("case", c.String("case"))
			if err != nil {
				return err
			}
			assetID, err := parseID("asset", c.String("asset"))
			if err != nil {
				return err
			}

			msg := pipeline.Message{
				Type:            pipeline.MessageTypeAssetUploaded,
				CaseID:          caseID,
				AssetID:         assetID,
				UserDescription: c.String("description"),
				ForceFail:       c.Bool("force-fail"),
			}
			if v := c.String("source-case"); v != "" {
				source, err := parseID("source-case", v)
				if err != nil {
					return err
				}
				msg.ContextReuse = &pipeline.ContextReuse{SourceCaseID: &source}
			}

			id, err := send(c.Context, d.Queue, msg)
			if err != nil {
				return err
			}
			return outputJSON(d.Out, map[string]any{"messageId": id, "message": msg})
		},
	}
}

func uploadCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:      "upload",
		Usage:     "Upload a local file as a case asset and optionally enqueue it",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "case", Aliases: []string{"c"}, Required: true, Usage: "Case ID"},
			&cli.StringFlag{Name: "mime", Usage: "MIME type (defaults to the file extension's type)"},
			&cli.BoolFlag{Name: "enqueue", Aliases: []string{"e"}, Usage: "Send an asset_uploaded message after upload"},
			&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "User description sent with the message"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("upload requires exactly one file argument")
			}
			caseID, err := parseID("case", c.String("case"))
			if err != nil {
				return err
			}

			path := c.Args().First()
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}

			name := filepath.Base(path)
			mimeType := c.String("mime")
			if mimeType == "" {
				mimeType = mime.TypeByExtension(filepath.Ext(name))
			}
			if mimeType == "" {
				mimeType = "application/octet-stream"
			}

			key := fmt.Sprintf("cases/%s/%s-%s", caseID, uuid.NewString(), name)
			if err := d.Store.Upload(c.Context, key, bytes.NewReader(data), mimeType); err != nil {
				return fmt.Errorf("upload %s: %w", key, err)
			}

			asset, err := d.Register(c.Context, assets.RegisterCommand{
				CaseID:     caseID,
				StorageKey: key,
				FileName:   name,
				MimeType:   mimeType,
				ByteSize:   int64(len(data)),
			})
			if err != nil {
				return fmt.Errorf("register asset: %w", err)
			}

			out := map[string]any{"asset": asset}
			if c.Bool("enqueue") {
				id, err := send(c.Context, d.Queue, pipeline.Message{
					Type:            pipeline.MessageTypeAssetUploaded,
					CaseID:          caseID,
					AssetID:         asset.ID,
					UserDescription: c.String("description"),
				})
				if err != nil {
					return err
				}
				out["messageId"] = id
			}
			return outputJSON(d.Out, out)
		},
	}
}

func remindersCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "reminders",
		Usage: "Inspect and drive deadline reminders",
		Subcommands: []*cli.Command{
			{
				Name:  "sync",
				Usage: "Reconcile the reminder schedule of a case",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "case", Aliases: []string{"c"}, Required: true, Usage: "Case ID"},
				},
				Action: func(c *cli.Context) error {
					caseID, err := parseID("case", c.String("case"))
					if err != nil {
						return err
					}
					result, err := d.Scheduler.Sync(c.Context, caseID)
					if err != nil {
						return fmt.Errorf("sync reminders: %w", err)
					}
					return outputJSON(d.Out, result)
				},
			},
			{
				Name:  "process",
				Usage: "Deliver reminders that are due",
				Flags: []cli.Flag{
					&cli.TimestampFlag{Name: "now", Layout: time.RFC3339, Usage: "Evaluate due reminders at this instant (RFC3339)"},
				},
				Action: func(c *cli.Context) error {
					now := time.Now().UTC()
					if ts := c.Timestamp("now"); ts != nil {
						now = ts.UTC()
					}
					summary, err := d.Due.ProcessDue(c.Context, now)
					if err != nil {
						return fmt.Errorf("process reminders: %w", err)
					}
					return outputJSON(d.Out, summary)
				},
			},
		},
	}
}

// send validates msg the way the worker will before enqueueing it.
func send(ctx context.Context, q Sender, msg pipeline.Message) (string, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("encode message: %w", err)
	}
	if !msg.ForceFail {
		if _, err := pipeline.ParseMessage(body); err != nil {
			return "", err
		}
	}

	id, err := q.Send(ctx, body)
	if err != nil {
		return "", fmt.Errorf("enqueue: %w", err)
	}
	return id, nil
}

func parseID(name, v string) (uuid.UUID, error) {
	id, err := uuid.Parse(v)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid --%s %q: %w", name, v, err)
	}
	return id, nil
}

func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
