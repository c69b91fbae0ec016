package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "credibility-scanner",
		Usage: "score website credibility from page, TLS and WHOIS signals",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-level", Usage: "override LOG_LEVEL"},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API",
				Action: serveAction,
			},
			{
				Name:      "scrape",
				Usage:     "collect metadata for one or more URLs",
				ArgsUsage: "URL [URL...]",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "print records as JSON"},
				},
				Action: scrapeAction,
			},
			{
				Name:      "predict",
				Usage:     "scrape URLs and classify them",
				ArgsUsage: "URL [URL...]",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "print results as JSON"},
				},
				Action: predictAction,
			},
			{
				Name:      "batch",
				Usage:     "classify every row of a CSV or XLSX feature file",
				ArgsUsage: "INPUT",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "write CSV here instead of stdout"},
				},
				Action: batchAction,
			},
			{
				Name:  "analyze-text",
				Usage: "fact-check a piece of text with the LLM",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "text", Usage: "text to analyze"},
					&cli.StringFlag{Name: "file", Usage: "read text from a file"},
					&cli.StringFlag{Name: "url", Usage: "extract the article at this URL"},
				},
				Action: analyzeTextAction,
			},
			{
				Name:      "classify-image",
				Usage:     "detect AI-generated images",
				ArgsUsage: "IMAGE",
				Action:    classifyImageAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
