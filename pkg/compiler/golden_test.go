package compiler

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"
)

// Snapshot of parse+analyze output, kept deliberately small so golden
// diffs stay readable.
type analysisSnapshot struct {
	Name     string     `json:"name"`
	Vars     []snapVar  `json:"vars,omitempty"`
	Reactive []string   `json:"reactive,omitempty"`
	Exprs    []snapExpr `json:"exprs,omitempty"`
}

type snapVar struct {
	Name  string `json:"name"`
	Bit   int    `json:"bit"`
	Type  string `json:"type"`
	Prop  bool   `json:"prop,omitempty"`
	React bool   `json:"react,omitempty"`
	Deps  []int  `json:"deps,omitempty"`
}

type snapExpr struct {
	Expr string `json:"expr"`
	Bits []int  `json:"bits,omitempty"`
}

func snapshotOf(a *Analysis) analysisSnapshot {
	snap := analysisSnapshot{Name: a.Component.Name}
	for _, v := range a.Script.Vars {
		snap.Vars = append(snap.Vars, snapVar{
			Name:  v.Name,
			Bit:   v.Bit,
			Type:  v.Type,
			Prop:  v.Exported,
			React: v.Reactive,
			Deps:  v.Deps.bits(),
		})
	}
	for _, unit := range a.Script.ReactiveOrder {
		if unit.Var != nil {
			snap.Reactive = append(snap.Reactive, unit.Var.Name)
		} else {
			snap.Reactive = append(snap.Reactive, unit.Func.Name)
		}
	}
	for _, ed := range a.ExprDeps {
		snap.Exprs = append(snap.Exprs, snapExpr{Expr: ed.Expr, Bits: ed.Bits})
	}
	return snap
}

func TestAnalysisGolden(t *testing.T) {
	for _, name := range []string{"counter", "todos"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join("testdata", name+".veld")
			src, err := os.ReadFile(path)
			require.NoError(t, err)

			component, err := Parse(path, src)
			require.NoError(t, err)
			analysis, err := Analyze(component)
			require.NoError(t, err)

			var buf bytes.Buffer
			enc := json.NewEncoder(&buf)
			enc.SetEscapeHTML(false)
			enc.SetIndent("", "  ")
			require.NoError(t, enc.Encode(snapshotOf(analysis)))

			g := goldie.New(t,
				goldie.WithFixtureDir(filepath.Join("testdata", "golden")),
				goldie.WithNameSuffix(".golden"),
			)
			g.Assert(t, name, buf.Bytes())
		})
	}
}
