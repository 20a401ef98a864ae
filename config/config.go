// Package config turns command line arguments and environment variables into the settings of an upload run.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bitrise-io/go-glacier-upload/internal"
	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/pathutil"
)

// Usage is printed when the positional arguments can not be parsed.
const Usage = "usage: glacier-upload <input_file> <part_size_mib> <vault_name>"

var (
	// ErrUsage is returned for a wrong number of arguments or a part size that is not an integer.
	ErrUsage = errors.New("invalid arguments")
	// ErrInputFileNotFound is returned when the input path is not a regular file.
	ErrInputFileNotFound = errors.New("input file not found")
	// ErrInvalidPartSize is returned for a part size below 1.
	ErrInvalidPartSize = errors.New("part size should be a positive value")
)

// Environment variables read by New.
const (
	BackendKey         = "ARCHIVE_BACKEND"
	RegionKey          = "AWS_REGION"
	AccessKeyIDKey     = "AWS_ACCESS_KEY_ID"
	SecretAccessKeyKey = "AWS_SECRET_ACCESS_KEY"
	AccountIDKey       = "GLACIER_ACCOUNT_ID"
	StorageClassKey    = "S3_STORAGE_CLASS"
	LedgerDirKey       = "LEDGER_DIR"
	VerboseKey         = "VERBOSE"
)

// Backend selects the archive.Client implementation.
type Backend string

// Backends ...
const (
	BackendGlacier Backend = "glacier"
	BackendS3      Backend = "s3"
	BackendMemory  Backend = "memory"
)

// Secret hides its value when printed.
type Secret string

// String ...
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "*****"
}

// Args are the positional command line arguments.
type Args struct {
	InputFile   string
	PartSizeMiB int
	VaultName   string
}

// ParseArgs validates the positional arguments. The input file is checked before the part size.
func ParseArgs(args []string, osProxy internal.OsProxy) (Args, error) {
	if len(args) != 3 {
		return Args{}, fmt.Errorf("%w: expected 3 arguments, got %d", ErrUsage, len(args))
	}

	partSize, err := strconv.Atoi(strings.TrimSpace(args[1]))
	if err != nil {
		return Args{}, fmt.Errorf("%w: part size %q is not an integer", ErrUsage, args[1])
	}

	parsed := Args{
		InputFile:   args[0],
		PartSizeMiB: partSize,
		VaultName:   args[2],
	}

	if !internal.IsRegularFile(osProxy, parsed.InputFile) {
		return Args{}, ErrInputFileNotFound
	}
	if parsed.PartSizeMiB <= 0 {
		return Args{}, ErrInvalidPartSize
	}

	return parsed, nil
}

// Config holds the environment driven settings.
type Config struct {
	Backend         Backend
	Region          string
	AccessKeyID     string
	SecretAccessKey Secret
	AccountID       string
	StorageClass    string
	LedgerDir       string
	Verbose         bool
}

// New reads the configuration from envRepo.
func New(envRepo env.Repository, pathModifier pathutil.PathModifier) (Config, error) {
	cfg := Config{
		Backend:         Backend(strings.ToLower(strings.TrimSpace(envRepo.Get(BackendKey)))),
		Region:          envRepo.Get(RegionKey),
		AccessKeyID:     envRepo.Get(AccessKeyIDKey),
		SecretAccessKey: Secret(envRepo.Get(SecretAccessKeyKey)),
		AccountID:       envRepo.Get(AccountIDKey),
		StorageClass:    envRepo.Get(StorageClassKey),
		LedgerDir:       envRepo.Get(LedgerDirKey),
	}

	if cfg.Backend == "" {
		cfg.Backend = BackendGlacier
	}
	switch cfg.Backend {
	case BackendGlacier, BackendS3, BackendMemory:
	default:
		return Config{}, fmt.Errorf("%s: unsupported backend %q, use one of: %s, %s, %s", BackendKey, cfg.Backend, BackendGlacier, BackendS3, BackendMemory)
	}

	if v := strings.TrimSpace(envRepo.Get(VerboseKey)); v != "" {
		verbose, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", VerboseKey, err)
		}
		cfg.Verbose = verbose
	}

	if cfg.LedgerDir != "" {
		dir, err := pathModifier.AbsPath(cfg.LedgerDir)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", LedgerDirKey, err)
		}
		cfg.LedgerDir = dir
	}

	return cfg, nil
}
