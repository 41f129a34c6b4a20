// Package logging configures the structured logger shared by all ankify
// components. Components receive the *slog.Logger explicitly; nothing in
// ankify logs through package-level state apart from the default set here.
package logging
