// Package web は HTML テンプレートを埋め込みで提供します。
package web

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var files embed.FS

// Templates はすべてのビューを読み込んだテンプレートを返します。
// 各ビューはファイル名 (例: "login.html") で参照します。
func Templates() *template.Template {
	return template.Must(template.ParseFS(files, "templates/*.html"))
}
