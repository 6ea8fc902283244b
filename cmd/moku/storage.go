package main

import (
	"encoding/json"
	"fmt"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/moku/pkg/storage"
)

func storageCommand() *cli.Command {
	return &cli.Command{
		Name:  "storage",
		Usage: l10n.T("Show disk usage of the downloads directory."),
		Flags: []cli.Flag{
			&cli.PathFlag{Name: "downloads-path", Usage: l10n.T("Downloads directory (default: server data directory)")},
			&cli.BoolFlag{Name: "json", Usage: l10n.T("Print as JSON")},
		},
		Action: runStorage,
	}
}

func runStorage(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	path := cfg.DownloadsPath
	if c.IsSet("downloads-path") {
		path = c.Path("downloads-path")
	}

	info, err := storage.Query(path)
	if err != nil {
		return fmt.Errorf("query storage: %w", err)
	}

	out := c.App.Writer
	if c.Bool("json") {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}

	fmt.Fprintln(out, l10n.F("Downloads: %s", info.Path))
	fmt.Fprintln(out, l10n.F("Manga:     %s", formatBytes(info.MangaBytes)))
	fmt.Fprintln(out, l10n.F("Total:     %s", formatBytes(info.TotalBytes)))
	fmt.Fprintln(out, l10n.F("Free:      %s", formatBytes(info.FreeBytes)))
	return nil
}

// formatBytes renders a byte count with a binary unit, e.g. "1.5 GiB".
func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
