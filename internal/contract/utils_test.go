package contract

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGetFillLabel(t *testing.T) {
	tests := []struct {
		name          string
		filled, total int
		expected      string
	}{
		{"no channels", 0, 0, EmptyValue},
		{"none filled", 0, 3, EmptyValue},
		{"some filled", 1, 3, PartialValue},
		{"all filled", 3, 3, FilledValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetFillLabel(tt.filled, tt.total))
			assert.Contains(t, GetColorFillLabel(tt.filled, tt.total), tt.expected)
		})
	}
}

func TestColorArea(t *testing.T) {
	assert.Contains(t, ColorArea(1.5, "1.500"), "1.500")
	assert.Contains(t, ColorArea(-1.5, "-1.500"), "-1.500")
	assert.Equal(t, "0.000", ColorArea(0, "0.000"))
}

func TestSelectOutputFile(t *testing.T) {
	t.Run("empty path returns stdout", func(t *testing.T) {
		file, err := SelectOutputFile("")
		require.NoError(t, err)
		assert.Equal(t, os.Stdout, file)
	})

	t.Run("valid path creates file", func(t *testing.T) {
		tempFile := filepath.Join(t.TempDir(), "test_output.txt")

		file, err := SelectOutputFile(tempFile)
		require.NoError(t, err)
		assert.NotNil(t, file)
		_ = file.Close()

		_, err = os.Stat(tempFile)
		assert.NoError(t, err)
	})
}

func TestTruncateName(t *testing.T) {
	assert.Equal(t, "short", TruncateName("short", 10))
	assert.Equal(t, "worki...", TruncateName("working electrode", 8))
	assert.Equal(t, "abcdef", TruncateName("abcdef", 3))
}

func TestParseBoolString(t *testing.T) {
	for _, s := range []string{"yes", "TRUE", "1"} {
		v, err := ParseBoolString(s)
		require.NoError(t, err)
		assert.True(t, v, s)
	}
	for _, s := range []string{"no", "False", "0"} {
		v, err := ParseBoolString(s)
		require.NoError(t, err)
		assert.False(t, v, s)
	}
	_, err := ParseBoolString("")
	assert.Error(t, err)
}

func TestGetDBFilePath(t *testing.T) {
	path := GetDBFilePath()
	assert.NotEmpty(t, path)
	assert.Contains(t, path, ".peakbase.db")

	homeDir, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(path, homeDir), "path %s should start with home dir %s", path, homeDir)
}

func TestSetLogger(t *testing.T) {
	defer SetLogger(nil)

	l := zap.NewExample()
	SetLogger(l)
	assert.Same(t, l, Logger())

	SetLogger(nil)
	assert.NotNil(t, Logger())
}

// FuzzParseS3Target checks that accepted targets always have a bucket and a key.
func FuzzParseS3Target(f *testing.F) {
	for _, seed := range []string{"s3://b/k", "s3://", "s3://b/", "out.csv", "s3://b/a/b/c.parquet"} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, target string) {
		bucket, key, err := ParseS3Target(target)
		if err != nil {
			return
		}
		if bucket == "" || key == "" || strings.Contains(bucket, "/") {
			t.Fatalf("ParseS3Target(%q) = %q, %q", target, bucket, key)
		}
	})
}
