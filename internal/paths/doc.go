// Provides the on-disk layout of a build workspace.
//
// A workspace is a base directory holding the cloned repositories side by
// side with the Rust crates. Every step computes absolute paths from a
// [Layout] so the process working directory is never changed. User-level
// configuration follows XDG conventions on Linux and platform-native
// conventions on macOS and Windows.
package paths
