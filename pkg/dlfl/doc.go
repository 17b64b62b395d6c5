// Package dlfl implements a face-centric polygon mesh kernel (doubly-linked
// face list). Faces are closed cycles of corners; a corner binds one vertex,
// one face, and the edge leading to the next corner of its face. Every edge
// references the two corners, one per adjacent face, that traverse it.
//
// Entities live in per-type slab pools owned by a Mesh and are addressed by
// handles (VertexRef, EdgeRef, FaceRef, CornerRef). A handle of value Nil, or
// one whose slot was freed, resolves to nothing; queries report that as a
// Nil result rather than an error.
//
// A Mesh is not safe for concurrent use.
package dlfl
