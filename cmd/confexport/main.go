package main

import (
	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/confexport/cmd/confexport/commands"
	"git.home.luguber.info/inful/confexport/internal/version"
)

func main() {
	var cli commands.CLI
	ctx := kong.Parse(&cli,
		kong.Name("confexport"),
		kong.Description("Export Confluence page trees to Markdown for mkdocs."),
		kong.UsageOnError(),
		kong.Vars{"version": version.Version},
	)
	ctx.FatalIfErrorf(ctx.Run(&commands.Global{}, &cli))
}
