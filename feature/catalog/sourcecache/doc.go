// Package sourcecache gates upstream fetches behind a TTL.
//
// A Cache remembers when its source was last fetched and returns
// immediately while that fetch is still fresh, so repeated refresh
// requests do not hammer the upstream. Concurrent callers of an expired
// cache share one in-flight fetch via singleflight. Seeding lets a
// restarted process inherit the freshness of data persisted by a
// previous run.
package sourcecache
