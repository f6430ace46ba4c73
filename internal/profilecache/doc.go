// Package profilecache provides a local cache that maps attendee identities to
// previously fetched profiles.
//
// A cache hit lets the fetch stage skip the external profile provider
// entirely, so re-ingesting an overlapping batch makes zero provider calls for
// identities already seen.
//
// # Storage
//
// The cache is stored as a JSON file (default: ~/.cache/opptrace/profiles.json)
// keyed by the hex SHA-256 of the trimmed identity. The format is
// human-readable and easy to inspect or edit manually. Entries never expire;
// clearing the file is the invalidation mechanism.
package profilecache
