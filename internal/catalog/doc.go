// Package catalog holds the ordered sector catalog that partitions bakery products.
//
// A sector's identity for ordering is its 1-based position in the catalog, not its
// code string. Packed order values store that position in their leading two digits,
// so a catalog holds at most 99 sectors and must never be reordered once products
// have been assigned orders against it.
//
// A Catalog is immutable after construction and is passed explicitly to every
// component that needs it; there is no package-level catalog.
//
// Catalogs are configured in CUE (validated against an embedded schema) or YAML:
//
//	sectors: [
//		{code: "GRL", name: "Granel"},
//		{code: "GFR", name: "Gofrería"},
//	]
package catalog
