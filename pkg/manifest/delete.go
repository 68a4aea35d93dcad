package manifest

import (
	"context"
	"fmt"
)

// Delete removes every file recorded in strategy's manifest, then the
// manifest itself. Files that are already gone are skipped.
func Delete(ctx context.Context, st Storage, strategy string) error {
	m, err := Read(ctx, st, strategy)
	if err != nil {
		return err
	}

	for _, e := range m.Entries {
		if !e.OK() || !st.Exists(ctx, e.Key) {
			continue
		}
		if err := st.Delete(ctx, e.Key); err != nil {
			return fmt.Errorf("manifest: delete %s: %w", e.Key, err)
		}
	}

	if err := st.Delete(ctx, Path(strategy)); err != nil {
		return fmt.Errorf("manifest: delete manifest: %w", err)
	}
	return nil
}
