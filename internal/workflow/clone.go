package workflow

import (
	"context"
	"fmt"

	"protonbuild/internal/command"
)

// Clone fetches every configured repository into the base directory.
// Checkouts that already exist are left alone.
func (b *Builder) Clone(ctx context.Context) error {
	if err := ensureDir(b.layout.Base); err != nil {
		return err
	}

	for _, repo := range b.cfg.Repositories {
		dir := b.layout.Join(repo.Dir)
		if exists(dir) {
			b.printer.Info("Repository %s already exists, skipping clone", repo.Dir)
			continue
		}

		cmd := command.Command{
			Name: "git",
			Args: []string{"clone", repo.URL, repo.Dir},
			Dir:  b.layout.Base,
		}
		if err := b.run(ctx, cmd); err != nil {
			return fmt.Errorf("failed to clone %s: %w", repo.URL, err)
		}
		b.printer.Success("Cloned %s", repo.Dir)
	}
	return nil
}
