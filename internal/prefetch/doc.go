// Package prefetch runs data queries with a bounded wait and classifies the
// outcome instead of failing.
//
// Prefetch races a query against a timer. Whichever finishes first decides
// the Result; the losing fetch is never cancelled and, when a QueryClient is
// attached, still fills the cache for the next caller. Every error is handed
// to the Reporter before it is returned as a value.
//
// Two criticality modes sit on the same race:
//   - CriticalQuery: the page cannot render without the data; errors are
//     returned as *QueryError for a coarse failure boundary to handle
//   - OptionalQuery: the data only enhances the page; errors become "no data"
//
// Example Usage:
//
//	queries, _ := prefetch.NewQueryClient(prefetch.DefaultQueryClientConfig())
//	p := prefetch.New(queries, prefetch.WithTimeout(time.Second), prefetch.WithReporter(reporter))
//
//	summary, err := prefetch.CriticalQuery(ctx, p, prefetch.Query[Summary]{
//		Key:   prefetch.KeyOf("transactions", 10),
//		Fetch: func(ctx context.Context) (Summary, error) { return api.Transactions(ctx, 10) },
//	})
package prefetch
