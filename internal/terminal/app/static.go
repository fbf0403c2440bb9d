package app

import _ "embed"

// indexPage is the single-page terminal client served at /.
//
//go:embed static/index.html
var indexPage []byte
