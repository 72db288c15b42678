// Package coldb is an embedded, typed, self-describing columnar data store
// persisted in a single binary container file.
//
// A Dataset holds named columns of heterogeneous semantic types: scalars,
// datetimes, bounded categoricals, fixed-length numeric vectors, and
// file-like media payloads (images, audio, video, meshes, 1-D sequences).
// Columns can be filled row-wise or column-wise and read back with the same
// semantics. The store supports schema evolution (add, remove, rename
// columns), partial writes through slice/mask/fancy index selectors,
// deduplicated blob storage for media payloads, and crash-safe mutation:
// every mutating call either fully succeeds or leaves the dataset in its
// prior observable state.
//
// The dataset is a single-writer engine. It provides no locking of its own;
// callers needing concurrent access must serialize externally. Readers track
// staleness through the monotonic generation id, which increases by exactly
// one on every successful mutation.
//
// Basic usage:
//
//	ds, err := coldb.Open("points.coldb", coldb.ModeCreate)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer ds.Close()
//
//	err = ds.AppendColumn("score", column.KindFloat, []column.Value{
//		column.Float(0.5), column.Float(0.9),
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	v, err := ds.GetCell("score", 1)
package coldb
