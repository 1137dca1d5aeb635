package disk

// Geometry is one unit's probed shape (spec.md §3, "Disk Geometry"):
// probed once at DS initialization via a Tracks query, never
// rediscovered afterward. DiskSize (spec.md §4.3) reports these three
// fields separately rather than their product — a caller needs
// sector size, sectors per track, and track count individually to
// compute an offset into the medium, not just a total byte count.
type Geometry struct {
	NumTracks       int
	SectorsPerTrack int
	SectorSize      int
}
