// Command glacier-upload splits a file into parts, uploads it to a cold-storage vault as a
// multipart upload and records the resulting archive in a per-vault CSV ledger.
//
// Usage:
//
//	glacier-upload <input_file> <part_size_mib> <vault_name>
//
// The archive backend and AWS access are configured through environment variables, see the config package.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bitrise-io/go-glacier-upload/archive"
	"github.com/bitrise-io/go-glacier-upload/config"
	"github.com/bitrise-io/go-glacier-upload/internal"
	"github.com/bitrise-io/go-glacier-upload/ledger"
	"github.com/bitrise-io/go-glacier-upload/upload"
	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/pathutil"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], env.NewRepository(), log.NewLogger(), internal.RealOS{}))
}

func run(ctx context.Context, args []string, envRepo env.Repository, logger log.Logger, osProxy internal.OsProxy) int {
	parsed, err := config.ParseArgs(args, osProxy)
	if err != nil {
		if errors.Is(err, config.ErrUsage) {
			logger.Printf("%s", config.Usage)
			logger.Errorf("%s", err)
			return exitUsage
		}
		// bad input is reported without contacting the archive service
		logger.Printf("Error: %s", inputErrorMessage(err))
		return exitOK
	}

	cfg, err := config.New(envRepo, pathutil.NewPathModifier())
	if err != nil {
		logger.Errorf("Invalid configuration: %s", err)
		return exitError
	}
	logger.EnableDebugLog(cfg.Verbose)
	logger.Debugf("Backend: %s, ledger dir: %q", cfg.Backend, cfg.LedgerDir)

	if cfg.Backend == config.BackendGlacier && !isGlacierPartSize(parsed.PartSizeMiB) {
		logger.Warnf("Glacier only accepts part sizes that are a power of two between 1 and 4096 MiB, got %d MiB", parsed.PartSizeMiB)
	}

	client, err := newArchiveClient(ctx, cfg, logger)
	if err != nil {
		logger.Errorf("Failed to create %s client: %s", cfg.Backend, err)
		return exitError
	}

	result, err := upload.NewUploader(client, logger, osProxy).Upload(ctx, upload.Input{
		FilePath:    parsed.InputFile,
		PartSizeMiB: parsed.PartSizeMiB,
		VaultName:   parsed.VaultName,
	})
	if err != nil {
		logger.Errorf("Upload failed: %s", err)
		return exitError
	}

	writer := ledger.NewWriter(cfg.LedgerDir, osProxy)
	if err := writer.Append(parsed.VaultName, ledger.Record{
		OriginalFilename: filepath.Base(parsed.InputFile),
		ArchiveID:        result.Archive.ArchiveID,
		TreeHash:         result.TreeHash,
		Location:         result.Archive.Location,
		UploadedAt:       result.UploadedAt,
	}); err != nil {
		logger.Errorf("Failed to update ledger: %s", err)
		return exitError
	}
	logger.Debugf("Archive recorded in %s", writer.Path(parsed.VaultName))

	records, err := writer.Read(parsed.VaultName)
	if err != nil {
		logger.Warnf("Failed to read back ledger: %s", err)
		return exitOK
	}
	logger.Printf("Vault %s now holds %d archive(s) in %s", parsed.VaultName, len(records), writer.Path(parsed.VaultName))

	return exitOK
}

func inputErrorMessage(err error) string {
	switch {
	case errors.Is(err, config.ErrInputFileNotFound):
		return "Input file not found."
	case errors.Is(err, config.ErrInvalidPartSize):
		return "Part size should be a positive value."
	default:
		return err.Error()
	}
}

func newArchiveClient(ctx context.Context, cfg config.Config, logger log.Logger) (archive.Client, error) {
	awsParams := archive.AWSParams{
		Region:          cfg.Region,
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: string(cfg.SecretAccessKey),
	}

	switch cfg.Backend {
	case config.BackendGlacier:
		return archive.NewGlacierClient(ctx, archive.GlacierParams{AWSParams: awsParams, AccountID: cfg.AccountID}, logger)
	case config.BackendS3:
		return archive.NewS3Client(ctx, archive.S3Params{AWSParams: awsParams, StorageClass: cfg.StorageClass}, logger)
	case config.BackendMemory:
		logger.Warnf("Using the in-memory archive backend, nothing leaves this machine")
		return archive.NewMemoryClient(), nil
	default:
		return nil, fmt.Errorf("unsupported backend: %s", cfg.Backend)
	}
}

func isGlacierPartSize(mib int) bool {
	return mib >= 1 && mib <= 4096 && mib&(mib-1) == 0
}
