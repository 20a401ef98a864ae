package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/bitrise-io/go-glacier-upload/internal"
	"github.com/bitrise-io/go-utils/v2/pathutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEnvRepo struct {
	envVars map[string]string
}

func (repo fakeEnvRepo) Get(key string) string {
	return repo.envVars[key]
}

func (repo fakeEnvRepo) Set(key, value string) error {
	repo.envVars[key] = value
	return nil
}

func (repo fakeEnvRepo) Unset(key string) error {
	delete(repo.envVars, key)
	return nil
}

func (repo fakeEnvRepo) List() []string {
	var envs []string
	for k, v := range repo.envVars {
		envs = append(envs, fmt.Sprintf("%s=%s", k, v))
	}
	return envs
}

func TestParseArgs(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "archive.tar")
	require.NoError(t, os.WriteFile(file, []byte("data"), 0644))

	tests := []struct {
		name    string
		args    []string
		want    Args
		wantErr error
	}{
		{
			name: "valid",
			args: []string{file, "16", "photos"},
			want: Args{InputFile: file, PartSizeMiB: 16, VaultName: "photos"},
		},
		{
			name:    "missing file",
			args:    []string{filepath.Join(dir, "missing.tar"), "16", "photos"},
			wantErr: ErrInputFileNotFound,
		},
		{
			name:    "directory is not a file",
			args:    []string{dir, "16", "photos"},
			wantErr: ErrInputFileNotFound,
		},
		{
			name:    "zero part size",
			args:    []string{file, "0", "photos"},
			wantErr: ErrInvalidPartSize,
		},
		{
			name:    "negative part size",
			args:    []string{file, "-5", "photos"},
			wantErr: ErrInvalidPartSize,
		},
		{
			name:    "missing file is reported before part size",
			args:    []string{filepath.Join(dir, "missing.tar"), "-5", "photos"},
			wantErr: ErrInputFileNotFound,
		},
		{
			name:    "part size is not a number",
			args:    []string{file, "ten", "photos"},
			wantErr: ErrUsage,
		},
		{
			name:    "too few arguments",
			args:    []string{file, "16"},
			wantErr: ErrUsage,
		},
		{
			name:    "too many arguments",
			args:    []string{file, "16", "photos", "extra"},
			wantErr: ErrUsage,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseArgs(tt.args, internal.RealOS{})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	tests := []struct {
		name    string
		envs    map[string]string
		want    Config
		wantErr bool
	}{
		{
			name: "defaults",
			envs: map[string]string{},
			want: Config{Backend: BackendGlacier},
		},
		{
			name: "everything set",
			envs: map[string]string{
				BackendKey:         "S3",
				RegionKey:          "eu-west-1",
				AccessKeyIDKey:     "AKIA",
				SecretAccessKeyKey: "secret",
				AccountIDKey:       "111122223333",
				StorageClassKey:    "GLACIER",
				LedgerDirKey:       "~/ledgers",
				VerboseKey:         "true",
			},
			want: Config{
				Backend:         BackendS3,
				Region:          "eu-west-1",
				AccessKeyID:     "AKIA",
				SecretAccessKey: "secret",
				AccountID:       "111122223333",
				StorageClass:    "GLACIER",
				LedgerDir:       filepath.Join(home, "ledgers"),
				Verbose:         true,
			},
		},
		{
			name:    "unknown backend",
			envs:    map[string]string{BackendKey: "tape"},
			wantErr: true,
		},
		{
			name:    "invalid verbose flag",
			envs:    map[string]string{VerboseKey: "loud"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New(fakeEnvRepo{envVars: tt.envs}, pathutil.NewPathModifier())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSecret_String(t *testing.T) {
	assert.Equal(t, "*****", fmt.Sprint(Secret("pass1234")))
	assert.Equal(t, "", Secret("").String())
}
