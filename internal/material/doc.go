// Package material stores shared study materials: lecture notes, slides and
// documents uploaded by any portal user, with a per-item download counter.
//
// Files themselves live elsewhere; a material records the file URL and size.
package material
