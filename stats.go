package recache

// Stats is a point-in-time snapshot: Entries and SizeBytes are computed over
// currently-live (non-expired) entries; Hits and Misses accumulate over the
// process lifetime of the manager instance and survive Invalidate.
type Stats struct {
	Entries   int64
	Hits      int64
	Misses    int64
	HitRate   float64 // Hits / (Hits + Misses); 0 when no reads yet
	SizeBytes int64   // sum of encoded value sizes of live entries
}
