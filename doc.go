// Package kbsync is the composition root of the knowledge sync engine.
//
// kbsync keeps the knowledge records of several devices (machine/account
// pairs) in one collection, deduplicates and ranks them into an integrated
// view, and lets every device learn what its peers know. Each device pushes
// its active records to a remote and pulls its peers' records into its own
// perspective; every attempt lands in a sync history.
//
// The default adapters keep records as Markdown files with YAML frontmatter,
// one directory per device, optionally versioned with git:
//
//	engine, err := kbsync.New(ctx, "./vault",
//		kbsync.WithAutoInit(true),
//		kbsync.WithLogger(logger),
//	)
//	if err != nil {
//		return err
//	}
//	res, err := engine.Sync(ctx)
//
// The domain lives in pkg/core and can be used without any adapter through
// core.NewStore.
package kbsync
