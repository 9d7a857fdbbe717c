package lysbilde

import (
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
	"k8s.io/klog/v2"
)

var minifier = func() *minify.M {
	m := minify.New()
	m.AddFunc("text/html", html.Minify)
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("application/javascript", js.Minify)
	return m
}()

func minifyHTML(in []byte) ([]byte, error) {
	return minifier.Bytes("text/html", in)
}

func minifyCSS(in []byte) ([]byte, error) {
	return minifier.Bytes("text/css", in)
}

// minifyJS falls back to the original input when the source does not parse.
func minifyJS(in []byte) []byte {
	out, err := minifier.Bytes("application/javascript", in)
	if err != nil {
		klog.Warningf("js minify failed, using original: %v", err)
		return in
	}
	return out
}
