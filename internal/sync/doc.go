// Package sync propagates a canonical set of files and directories from a
// source root into a destination root.
//
// A run walks a fixed Manifest of entries in order. For each entry the Engine
// fingerprints source and destination, skips entries that are already up to
// date, snapshots the destination through the backup package, and applies the
// entry's Strategy:
//
//   - KindReplace: copy the source file over the destination
//   - KindDirectoryReplace: copy every file of the source tree, keeping
//     destination-only files
//   - KindDependencyMapMerge: merge named dependency maps, source winning on
//     key collisions, all other destination fields untouched
//   - KindManagedSectionOverlay: keep destination fields except one managed
//     key, which always tracks the source; a new destination receives the
//     whole source document
//
// Runs are idempotent: a second run over unchanged inputs writes nothing.
// Failures are recorded per entry and never abort the run; entries flagged
// Critical are reported separately in RunStats.CriticalFailures.
//
//	engine := sync.New(sync.Options{
//	    SourceRoot: "/home/me/.canonsync/canonical",
//	    DestRoot:   ".",
//	})
//	result := engine.Run(sync.DefaultManifest())
//	fmt.Println(result.Summary())
package sync
