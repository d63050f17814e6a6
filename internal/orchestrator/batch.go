package orchestrator

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/harrison/xhsassist/internal/models"
)

// NoteResult is the outcome of one link in a batch fetch.
type NoteResult struct {
	Index int
	URL   string
	Post  *models.Post
	Err   error
}

// FetchNotes fetches every link concurrently, one helper process per link.
// A failing link does not stop the others. onDone, if set, is called once
// per link as it finishes and is never called concurrently. Results keep
// the order of links.
func (o *Orchestrator) FetchNotes(ctx context.Context, links []string, creds models.CredentialSet, onDone func(NoteResult)) []NoteResult {
	results := make([]NoteResult, len(links))
	var mu sync.Mutex

	var g errgroup.Group
	for i, link := range links {
		i, link := i, link
		g.Go(func() error {
			post, err := o.FetchNote(ctx, link, creds)
			res := NoteResult{Index: i, URL: link, Post: post, Err: err}

			mu.Lock()
			defer mu.Unlock()
			results[i] = res
			if onDone != nil {
				onDone(res)
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
