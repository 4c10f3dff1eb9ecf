package main

import (
	"context"
	"fmt"
	"os"

	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/pathutil"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/santiagobasulto/markdown-tools/absolutify"
	"github.com/santiagobasulto/markdown-tools/absolutify/uploader"
)

var version = "dev"

func main() {
	// credentials may come from a local .env
	_ = godotenv.Load()

	app := &cli.App{
		Name:    "markdown-tools",
		Version: version,
		Usage:   "Utilities for publishing markdown documents",
		Commands: []*cli.Command{
			relToAbsCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.NewLogger().Errorf("%s", err)
		os.Exit(1)
	}
}

func relToAbsCommand() *cli.Command {
	return &cli.Command{
		Name:      "rel-to-abs",
		Usage:     "Upload relative images and rewrite them as absolute URLs",
		ArgsUsage: "<path>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "pattern",
				Aliases: []string{"p"},
				Value:   "**/*.md",
				Usage:   "glob used to scan markdown files when <path> is a directory",
			},
			&cli.StringFlag{
				Name:    "exclude",
				Aliases: []string{"e"},
				Value:   "absolute",
				Usage:   "skip files containing this substring in their name; pass '' to disable",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Value:   "{filename}.absolute.md",
				Usage:   "output filename pattern, {filename} is the input's stem",
			},
			&cli.StringFlag{
				Name:    "location",
				Aliases: []string{"l"},
				Usage:   "directory for the output files (must exist); defaults to next to each input",
			},
			&cli.IntFlag{
				Name:    "concurrency",
				Aliases: []string{"x"},
				Value:   1,
				Usage:   "number of documents processed in parallel",
			},
			&cli.StringFlag{
				Name:    "uploader",
				Aliases: []string{"u"},
				Value:   "s3",
				Usage:   "upload backend: s3 or imgur",
			},
			&cli.BoolFlag{
				Name:  "override",
				Usage: "upload even when the remote copy already exists",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
			},

			&cli.StringFlag{Name: "s3-bucket", EnvVars: []string{"S3_BUCKET"}},
			&cli.StringFlag{
				Name:    "s3-base-location",
				EnvVars: []string{"S3_BASE_LOCATION"},
				Usage:   "key prefix template; supports {filename}, {parent_0}, {random_hex} and {getenv \"VAR\"}",
			},
			&cli.StringFlag{Name: "s3-acl", Value: "private"},
			&cli.StringFlag{
				Name:  "s3-cloudfront-domain",
				Usage: "domain used in public URLs instead of the bucket default",
			},
			&cli.StringFlag{Name: "s3-cache-control", Value: "public, max-age=31536000"},
			&cli.BoolFlag{
				Name:  "s3-validate-etag",
				Value: true,
				Usage: "re-upload when the local content digest differs from the remote ETag",
			},
			&cli.StringFlag{Name: "s3-profile", EnvVars: []string{"AWS_PROFILE"}},
			&cli.StringFlag{Name: "s3-region", EnvVars: []string{"AWS_REGION"}},
			&cli.StringFlag{Name: "s3-access-key-id", EnvVars: []string{"AWS_ACCESS_KEY_ID"}},
			&cli.StringFlag{Name: "s3-secret-access-key", EnvVars: []string{"AWS_SECRET_ACCESS_KEY"}},
			&cli.StringFlag{Name: "s3-session-token", EnvVars: []string{"AWS_SESSION_TOKEN"}},

			&cli.StringFlag{Name: "imgur-access-token", EnvVars: []string{"IMGUR_ACCESS_TOKEN"}},
		},
		Action: runRelToAbs,
	}
}

func runRelToAbs(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("exactly one path argument is required", 1)
	}

	logger := log.NewLogger()
	logger.EnableDebugLog(c.Bool("verbose"))

	files, err := absolutify.CollectDocuments(c.Args().First(), c.String("pattern"), c.String("exclude"))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		logger.Warnf("No markdown files matched %s", c.String("pattern"))
		return nil
	}

	ctx := context.Background()
	up, err := buildUploader(ctx, c, logger)
	if err != nil {
		return err
	}

	processor := absolutify.NewProcessor(up, pathutil.NewPathChecker(), logger)
	summary, err := processor.ProcessAll(ctx, absolutify.BatchInput{
		Files:         files,
		OutputPattern: c.String("output"),
		OutputDir:     c.String("location"),
		Override:      c.Bool("override"),
		Concurrency:   c.Int("concurrency"),
	})
	if err != nil {
		return err
	}

	printSummary(summary, logger)
	if len(summary.Failed) > 0 {
		return cli.Exit("", 1)
	}
	return nil
}

func buildUploader(ctx context.Context, c *cli.Context, logger log.Logger) (uploader.Uploader, error) {
	switch c.String("uploader") {
	case "s3":
		return uploader.NewS3(ctx, uploader.S3Params{
			Bucket:           c.String("s3-bucket"),
			KeyPrefix:        c.String("s3-base-location"),
			ACL:              c.String("s3-acl"),
			CloudFrontDomain: c.String("s3-cloudfront-domain"),
			CacheControl:     c.String("s3-cache-control"),
			ValidateETag:     c.Bool("s3-validate-etag"),
			Profile:          c.String("s3-profile"),
			Region:           c.String("s3-region"),
			AccessKeyID:      c.String("s3-access-key-id"),
			SecretAccessKey:  c.String("s3-secret-access-key"),
			SessionToken:     c.String("s3-session-token"),
		}, env.NewRepository(), logger)
	case "imgur":
		return uploader.NewImgur(uploader.ImgurParams{
			AccessToken: c.String("imgur-access-token"),
		}, logger)
	default:
		return nil, fmt.Errorf("unknown uploader: %s", c.String("uploader"))
	}
}

func printSummary(summary absolutify.Summary, logger log.Logger) {
	logger.Println()
	logger.Printf("Successful jobs:")
	if len(summary.Succeeded) == 0 {
		logger.Printf("\t-")
	}
	for _, result := range summary.Succeeded {
		logger.Printf("\t%s", result.Path)
	}
	logger.Println()
	logger.Printf("Errored jobs:")
	if len(summary.Failed) == 0 {
		logger.Printf("\t-")
	}
	for _, result := range summary.Failed {
		logger.Printf("\t%s: %s", result.Path, result.Err)
	}
}
