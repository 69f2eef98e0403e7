package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"protonbuild/internal/stage"
)

const protoPattern = "*.proto"

// Protos replaces the protobuf definitions in proton-sdk-sys with the ones
// shipped in Proton.SDK. A missing source directory is a warning.
func (b *Builder) Protos(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if !isDir(b.layout.Sys()) {
		return fmt.Errorf("cannot find proton-sdk-sys directory at %s", b.layout.Sys())
	}

	copied, err := stage.ReplaceMatching(b.layout.SDKProtos(), b.layout.SysProtos(), protoPattern)
	if errors.Is(err, stage.ErrSourceMissing) {
		b.printer.Warning("Source protobuf directory not found at %s", b.layout.SDKProtos())
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to copy protobuf files: %w", err)
	}

	if len(copied) == 0 {
		b.printer.Warning("No .proto files found in %s", b.layout.SDKProtos())
		return nil
	}
	b.printer.Success("Copied %d protobuf files to %s", len(copied), b.layout.SysProtos())
	b.printer.Info("Copied files: %s", strings.Join(copied, ", "))
	return nil
}
