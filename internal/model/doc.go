// Package model provides the declarative element types shared by every
// canvasync package.
//
// This package contains type definitions only. All other internal packages
// import model; model imports nothing internal. This keeps the project data
// model the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Elements are owned by the timeline collaborator; the engine never
//     mutates a caller's Element, it works on Clone()s
//   - Positions are element centers in project space, origin at the center
//     of the output frame
//   - Times are seconds (float64), intervals are inclusive on both ends
//   - All YAML/JSON tags use snake_case
package model
