package cryptogauge

import (
	"html/template"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var intl = message.NewPrinter(language.English)

var globalTemplateFunctions = template.FuncMap{
	"formatCoordinate": func(f float64) string {
		return strconv.FormatFloat(f, 'f', 2, 64)
	},
	"safeURL": func(str string) template.URL {
		return template.URL(str)
	},
}

func mustParseTemplate(primary string, dependencies ...string) *template.Template {
	t, err := template.New(primary).
		Funcs(globalTemplateFunctions).
		ParseFS(templateFS, append([]string{primary}, dependencies...)...)

	if err != nil {
		panic(err)
	}

	return t
}
