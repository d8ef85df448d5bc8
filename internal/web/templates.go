package web

import (
	"bytes"
	"html/template"
	"slices"

	"github.com/jaminalder/tictactoe-history/internal/app"
	"github.com/jaminalder/tictactoe-history/internal/domain"
)

type templates struct {
	base  *template.Template
	index *template.Template
	game  *template.Template
	board *template.Template
}

func funcs() template.FuncMap {
	return template.FuncMap{
		"iter": func(n int) []int {
			a := make([]int, n)
			for i := range a {
				a[i] = i
			}
			return a
		},
		"add": func(a, b int) int { return a + b },
		"mul": func(a, b int) int { return a * b },
	}
}

func loadTemplates() *templates {
	base := template.Must(template.New("base").Funcs(funcs()).Parse(`<!doctype html><html><head>
<meta charset="utf-8"/>
<title>Tic Tac Toe</title>
<script src="https://unpkg.com/htmx.org@1.9.12"></script>
<script src="https://unpkg.com/htmx.org@1.9.12/dist/ext/sse.js"></script>
</head><body>{{template "content" .}}</body></html>`))
	// board lives in the base set so the game page can include it
	template.Must(base.New("board").Parse(boardTemplate))
	index := template.Must(template.Must(base.Clone()).New("content").Parse(
		`<h1>Tic Tac Toe</h1><form action="/game" method="post"><button>New game</button></form>`))
	game := template.Must(template.Must(base.Clone()).New("content").Parse(`
<h1>Tic Tac Toe</h1>
<div hx-ext="sse" sse-connect="/game/{{.ID}}/events">
  <div sse-swap="board" hx-target="#game" hx-swap="outerHTML"></div>
  {{template "board" .}}
</div>`))
	board := template.Must(template.New("board_only").Funcs(funcs()).Parse(boardTemplate))
	return &templates{base: base, index: index, game: game, board: board}
}

func renderTemplate(t *template.Template, name string, data any) []byte {
	var buf bytes.Buffer
	if name == "" {
		_ = t.Execute(&buf, data)
	} else {
		_ = t.ExecuteTemplate(&buf, name, data)
	}
	return buf.Bytes()
}

type cellData struct {
	Index  int
	Symbol string
	Win    bool
}

type boardData struct {
	ID       string
	Status   string
	Over     bool
	Cells    []cellData
	Moves    []domain.Move
	Reversed bool
	Error    string
}

func newBoardData(v app.GameView, errMsg string) boardData {
	d := boardData{
		ID:       v.ID,
		Status:   v.Status.String(),
		Over:     v.Status.Over(),
		Moves:    v.Moves,
		Reversed: v.Reversed,
		Error:    errMsg,
		Cells:    make([]cellData, domain.Cells),
	}
	for i, m := range v.Board {
		d.Cells[i] = cellData{
			Index:  i,
			Symbol: m.String(),
			Win:    v.HasWin && slices.Contains(v.WinLine[:], i),
		}
	}
	return d
}

const boardTemplate = `
<div id="game">
  <div class="status">{{.Status}}</div>
  {{if .Error}}
  <div class="alert">{{.Error}}</div>
  {{end}}
  <div class="game-board">
  {{range $r := iter 3}}
    <div class="board-row">
    {{range $c := iter 3}}
      {{with index $.Cells (add (mul $r 3) $c)}}
      <form hx-post="/game/{{$.ID}}/play" hx-target="#game" hx-swap="outerHTML" method="post">
        <input type="hidden" name="cell" value="{{.Index}}">
        <button type="submit" class="square{{if .Win}} win{{end}}"{{if or .Symbol $.Over}} disabled{{end}}>{{.Symbol}}</button>
      </form>
      {{end}}
    {{end}}
    </div>
  {{end}}
  </div>
  <div class="toggle-sort">
    <form hx-post="/game/{{.ID}}/reverse" hx-target="#game" hx-swap="outerHTML" method="post">
      <button type="submit">Reverse Moves Order</button>
    </form>
  </div>
  <div class="game-info">
    <ol class="moves"{{if .Reversed}} reversed{{end}}>
    {{range .Moves}}
      {{if .Jumpable}}
      <li><form hx-post="/game/{{$.ID}}/jump" hx-target="#game" hx-swap="outerHTML" method="post">
        <input type="hidden" name="move" value="{{.Number}}">
        <button type="submit">{{.Label}}</button>
      </form></li>
      {{else}}
      <li><p>{{.Label}}</p></li>
      {{end}}
    {{end}}
    </ol>
  </div>
</div>
`
