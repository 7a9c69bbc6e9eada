// Package options resolves the option set of each graph node.
//
// Resolution starts from the recipe's own default_options and applies the
// invocation's override list in increasing specificity: wildcard targets
// ("*" and "name/*") first, then exact targets ("name", "name/version", or the
// root package when no target is given). Within a tier, later entries win.
// Configure may then remove options, after which Freeze validates every key
// and value against the declared domain and returns immutable Values.
//
// Override syntax:
//
//	sdl/*:shared=True       every version of sdl
//	sdl:shared=False        sdl, exact tier
//	sdl/2.26.5:shared=True  sdl 2.26.5 only
//	*:fPIC=True             every package declaring fPIC
//	shared=True             the root package
//
// Boolean domains accept true/false, yes/no, on/off and 1/0, normalised to
// True and False.
package options
