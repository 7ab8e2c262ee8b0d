// Package syncer copies newsletter emails from a mailbox into the article
// library.
//
// Each run lists the unprocessed messages, derives an Article from every
// message (title, publication date, filename, cleaned HTML), writes the
// articles that are not yet in the library and marks handled messages as
// processed so the next run skips them. Per-message problems are counted and
// logged and never stop the run.
//
// Example usage:
//
//	s := syncer.New(mailbox, lib, syncer.Options{SubjectPrefix: "ByteByteGo"})
//	stats, err := s.Run(ctx)
//	if err != nil {
//	    return err
//	}
//	fmt.Printf("saved %d, skipped %d, failed %d\n", stats.Saved, stats.Skipped, stats.Failed)
package syncer
