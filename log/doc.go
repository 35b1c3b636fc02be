// Package log provides the leveled logging facade used by the engine,
// with a stdlib-backed default and an adapter for kataras/golog.
package log
