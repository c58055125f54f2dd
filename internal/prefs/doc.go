// Package prefs stores user preferences: theme, language, editor and
// analysis settings.
//
// Stored data is always merged over [Default], so records written by older
// versions or partial imports read back complete.
package prefs
