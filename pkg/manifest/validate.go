package manifest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ValidationResult contains the results of validating a batch's output.
type ValidationResult struct {
	Valid              bool     // true if every stored file exists and matches
	FileCount          int      // number of successful entries checked
	TotalBytes         int64    // sum of recorded sizes
	MissingFiles       int      // entries whose file doesn't exist
	SizeMismatches     int      // entries stored with the wrong size
	ChecksumMismatches int      // entries whose content hash differs
	Errors             []string // detailed error messages
}

type validateOptions struct {
	checksums bool
}

// ValidateOption configures Validate.
type ValidateOption func(*validateOptions)

// WithChecksums reads every file back and compares its SHA-256 with the
// recorded one.
func WithChecksums() ValidateOption {
	return func(o *validateOptions) {
		o.checksums = true
	}
}

// Validate checks that every successful entry of strategy's manifest exists
// with the recorded size. Failed entries are skipped.
//
// Missing files and mismatches are NOT returned as errors. They are
// reported in the ValidationResult with Valid=false.
func Validate(ctx context.Context, st Storage, strategy string, opts ...ValidateOption) (*ValidationResult, error) {
	var o validateOptions
	for _, opt := range opts {
		opt(&o)
	}

	m, err := Read(ctx, st, strategy)
	if err != nil {
		return nil, err
	}

	result := &ValidationResult{
		Valid:  true,
		Errors: make([]string, 0),
	}

	for _, e := range m.Entries {
		if !e.OK() {
			continue
		}
		result.FileCount++
		result.TotalBytes += e.Bytes

		size, err := st.Size(ctx, e.Key)
		if err != nil {
			if !st.Exists(ctx, e.Key) {
				result.Valid = false
				result.MissingFiles++
				result.Errors = append(result.Errors, fmt.Sprintf("missing: %s", e.Key))
				continue
			}
			return nil, fmt.Errorf("manifest: check %s: %w", e.Key, err)
		}

		if size != e.Bytes {
			result.Valid = false
			result.SizeMismatches++
			result.Errors = append(result.Errors,
				fmt.Sprintf("size mismatch: %s: expected %d, got %d", e.Key, e.Bytes, size))
			continue
		}

		if o.checksums && e.SHA256 != "" {
			data, err := st.ReadAll(ctx, e.Key)
			if err != nil {
				return nil, fmt.Errorf("manifest: read %s: %w", e.Key, err)
			}
			sum := sha256.Sum256(data)
			if got := hex.EncodeToString(sum[:]); got != e.SHA256 {
				result.Valid = false
				result.ChecksumMismatches++
				result.Errors = append(result.Errors,
					fmt.Sprintf("checksum mismatch: %s: expected %s, got %s", e.Key, e.SHA256, got))
			}
		}
	}

	return result, nil
}
