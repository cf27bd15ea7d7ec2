package commands

import (
	"context"
	"fmt"
	"strings"

	"git.home.luguber.info/inful/confexport/internal/config"
	"git.home.luguber.info/inful/confexport/internal/confluence"
	"git.home.luguber.info/inful/confexport/internal/pipeline"
)

// DiscoverCmd implements the 'discover' command: print the page tree
// reachable from the export root without writing anything.
type DiscoverCmd struct {
	Page  string `short:"p" help:"Root page ID (overrides config)"`
	Depth int    `short:"d" help:"Maximum depth to descend (0 = unlimited)"`
}

func (d *DiscoverCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if d.Page != "" {
		cfg.Confluence.PageID = d.Page
		cfg.Confluence.PageURL = ""
	}

	ctx := context.Background()
	p := pipeline.New(cfg)
	client, err := p.Client()
	if err != nil {
		return err
	}
	rootID, err := p.RootPageID(ctx, client)
	if err != nil {
		return err
	}

	total, err := d.walk(ctx, client, rootID, 0)
	if err != nil {
		return err
	}
	fmt.Printf("%d pages\n", total)
	return nil
}

func (d *DiscoverCmd) walk(ctx context.Context, client *confluence.Client, pageID string, depth int) (int, error) {
	page, err := client.GetPage(ctx, pageID)
	if err != nil {
		return 0, err
	}
	fmt.Printf("%s%s (%s, v%d)\n", strings.Repeat("  ", depth), page.Title, page.ID, page.Version.Number)

	if d.Depth > 0 && depth+1 >= d.Depth {
		return 1, nil
	}

	children, err := client.GetChildren(ctx, pageID)
	if err != nil {
		return 1, err
	}

	total := 1
	for _, child := range children {
		n, err := d.walk(ctx, client, child.ID, depth+1)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
