package confound

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/ava12/gramform/grammar"
	"github.com/ava12/gramform/internal/test"
	"github.com/ava12/gramform/parser"
)

func nan() float64 {
	return math.NaN()
}

func sampleFrame() *Frame {
	return NewFrame(
		Column{"global_signal", []float64{1, 2, 4, 7, 11, 16}},
		Column{"white_matter", []float64{3, 3, 3, 3, 3, 3}},
		Column{"csf", []float64{1, 0, 1, 0, 1, 0}},
		Column{"trans_x", []float64{0, 1, 0, 1, 0, 1}},
		Column{"trans_y", []float64{1, 1, 2, 2, 3, 3}},
		Column{"trans_z", []float64{0, 0, 0, 0, 0, 0}},
		Column{"rot_x", []float64{1, 2, 3, 4, 5, 6}},
		Column{"rot_y", []float64{6, 5, 4, 3, 2, 1}},
		Column{"rot_z", []float64{0, 1, 1, 0, 1, 1}},
		Column{"framewise_displacement", []float64{nan(), 0.1, 0.7, 0.2, 0.3, 0.9}},
		Column{"std_dvars", []float64{nan(), 1.0, 1.2, 2.0, 1.1, 1.0}},
		Column{"aroma_motion_01", []float64{1, 1, 1, 1, 1, 1}},
		Column{"aroma_motion_02", []float64{2, 2, 2, 2, 2, 2}},
		Column{"a_comp_cor_00", []float64{0, 0, 0, 0, 0, 0}},
	)
}

func sampleMeta() Meta {
	return Meta{
		"aroma_motion_01": {"MotionNoise": true},
		"aroma_motion_02": {"MotionNoise": false},
		"a_comp_cor_00":   {"Mask": "CSF"},
	}
}

var confoundGrammar = New()

func model(t *testing.T, formula string) *Frame {
	m, e := confoundGrammar.Compile(formula)
	if e != nil {
		t.Fatalf("formula %q: unexpected error: %s", formula, e)
	}

	res, _, e := m(sampleFrame(), sampleMeta())
	if e != nil {
		t.Fatalf("formula %q: unexpected runtime error: %s", formula, e)
	}
	return res
}

func expectNames(t *testing.T, formula string, expected ...string) *Frame {
	res := model(t, formula)
	test.ExpectString(t, strings.Join(expected, " "), strings.Join(res.Names(), " "))
	return res
}

func expectValues(t *testing.T, c Column, expected ...float64) {
	test.ExpectInt(t, len(expected), len(c.Values))
	for i, v := range expected {
		got := c.Values[i]
		if math.IsNaN(v) != math.IsNaN(got) || (!math.IsNaN(v) && v != got) {
			t.Fatalf("column %s row %d: expecting %v, got %v", c.Name, i, v, got)
		}
	}
}

func TestDerivatives(t *testing.T) {
	res := expectNames(t, "dd2(gs)", "global_signal", "global_signal_derivative1", "global_signal_derivative2")
	c, _ := res.Column("global_signal_derivative1")
	expectValues(t, c, nan(), 1, 2, 3, 4, 5)
	c, _ = res.Column("global_signal_derivative2")
	expectValues(t, c, nan(), nan(), 1, 1, 1, 1)

	expectNames(t, "gs + d2(gs)", "global_signal", "global_signal_derivative2")
	expectNames(t, "d1-2(wm)", "white_matter_derivative1", "white_matter_derivative2")
	test.ExpectInt(t, 12, model(t, "d0-1(rps)").Width())
}

func TestPowers(t *testing.T) {
	res := expectNames(t, "gs^^3", "global_signal", "global_signal_power2", "global_signal_power3")
	c, _ := res.Column("global_signal_power2")
	expectValues(t, c, 1, 4, 16, 49, 121, 256)

	expectNames(t, "d1 gs^^2", "global_signal_derivative1", "global_signal_power2_derivative1")
	expectNames(t, "(d1 gs)^^2",
		"global_signal_derivative1", "global_signal_derivative1_power2")
}

func TestModelExpansion(t *testing.T) {
	res := model(t, "dd1((rps + wm + csf + gsr)^^2)")
	test.ExpectInt(t, 36, res.Width())
	for _, name := range []string{"trans_y", "trans_y_power2", "trans_y_derivative1", "trans_y_power2_derivative1"} {
		test.Assert(t, res.Has(name), "missing column %s", name)
	}

	test.ExpectInt(t, 18, model(t, "(rps)^^2 + dd1(rps)").Width())
	test.ExpectInt(t, 9, model(t, "rps + wm + csf + gs + gsr").Width())
}

func TestMasks(t *testing.T) {
	res := expectNames(t, "[AND](1_[<0.5](fd) + 1_[<1.5](dv))", "mask_and")
	c, _ := res.Column("mask_and")
	expectValues(t, c, 0, 1, 0, 0, 1, 0)

	res = expectNames(t, "[NOT]([OR](1_[>0.5](fd) + 1_[>1.5](dv)))", "mask_or_not")
	c, _ = res.Column("mask_or_not")
	expectValues(t, c, 1, 1, 0, 0, 1, 0)

	res = expectNames(t, "1_[>=0.3](fd)", "framewise_displacement_ge0.3")
	c, _ = res.Column("framewise_displacement_ge0.3")
	expectValues(t, c, 0, 0, 1, 0, 1, 1)
}

func TestSpikes(t *testing.T) {
	res := expectNames(t, "[SCATTER]([OR](1_[>0.5](fd) + 1_[>1.5](dv)))",
		"mask_or_spike2", "mask_or_spike3", "mask_or_spike5")
	for _, c := range res.Columns() {
		test.Expect(t, c.Sum() == 1, 1, c.Sum())
	}

	test.ExpectInt(t, 0, model(t, "[SCATTER](1_[>100](fd))").Width())
}

func TestGlobs(t *testing.T) {
	expectNames(t, "wm + {{aroma_*; MotionNoise=true}}", "white_matter", "aroma_motion_01")
	expectNames(t, "{{aroma_*}}", "aroma_motion_01", "aroma_motion_02")
	expectNames(t, "{{*; Mask=CSF}} + csf", "a_comp_cor_00", "csf")
	expectNames(t, "d1{{rot_?}}", "rot_x_derivative1", "rot_y_derivative1", "rot_z_derivative1")
}

func TestMetaPassThrough(t *testing.T) {
	m, e := confoundGrammar.Compile("dd1(gs) + {{aroma_*}}")
	test.ExpectNoError(t, e)

	meta := sampleMeta()
	_, got, e := m(sampleFrame(), meta)
	test.ExpectNoError(t, e)
	test.ExpectInt(t, len(meta), len(got))
	got["x"] = nil
	test.Assert(t, meta["x"] == nil && len(meta) == len(got), "expecting the same metadata map")
}

func TestRuntimeErrors(t *testing.T) {
	m, e := confoundGrammar.Compile("gs + unknown_column")
	test.ExpectNoError(t, e)

	res, _, e := m(sampleFrame(), nil)
	test.Assert(t, e != nil && res == nil, "expecting runtime error")
	test.Assert(t, strings.Contains(e.Error(), "unknown_column"), "unexpected error: %s", e)

	_, _, e = m(NewFrame(Column{"a", []float64{1}}, Column{"a", []float64{2}}), nil)
	test.Assert(t, e != nil, "expecting duplicate column error")
}

func TestCompileErrors(t *testing.T) {
	samples := map[string]int{
		"a-b":      grammar.LeafError,
		"gs^^0":    grammar.CombinatorError,
		"d3-1(gs)": grammar.CombinatorError,
		"{{[}}":    grammar.ParamError,
		"{{*; x}}": grammar.ParamError,
		"gs +":     parser.ArityError,
		"d1":       parser.ArityError,
		"(gs":      parser.GroupingError,
		"gs wm":    parser.UnexpectedTokenError,
		"[AND]()":  parser.EmptyExpressionError,
	}

	for formula, code := range samples {
		_, e := confoundGrammar.Compile(formula)
		test.ExpectErrorCode(t, code, e)
	}
}

func TestFrames(t *testing.T) {
	f := NewFrame(Column{"a", []float64{1, 2}}, Column{"b", []float64{3}})
	test.Assert(t, f.Err() != nil, "expecting row count error")
	test.Assert(t, f.Select("a").Err() == f.Err(), "expecting sticky error")
	test.Assert(t, Merge(sampleFrame(), f).Err() == f.Err(), "expecting sticky error")

	f = NewFrame(Column{"a", []float64{1, 2}}, Column{"b", []float64{3, 4}})
	test.ExpectNoError(t, f.Err())
	test.ExpectInt(t, 2, f.Rows())
	test.Assert(t, f.Select("c").Err() != nil, "expecting unknown column error")
	test.ExpectString(t, "b a", strings.Join(f.Select("b", "a").Names(), " "))

	g := NewFrame(Column{"b", []float64{5, 6}}, Column{"c", []float64{7, 8}})
	m := Merge(f, g)
	test.ExpectString(t, "a b c", strings.Join(m.Names(), " "))
	c, _ := m.Column("b")
	expectValues(t, c, 3, 4)

	test.Assert(t, Merge(f, NewFrame(Column{"x", []float64{1}})).Err() != nil, "expecting row count error")
}

func TestColumnSuggestions(t *testing.T) {
	e := sampleFrame().Select("white").Err()
	test.ExpectString(t, "unknown column white, did you mean white_matter?", e.Error())

	e = sampleFrame().Select("qqq").Err()
	test.ExpectString(t, "unknown column qqq", e.Error())
}

func componentData() (*Frame, Meta) {
	rows := []float64{1, 2, 3, 4}
	cols := []Column{{"white_matter", rows}, {"csf", rows}}
	for _, name := range Aliases["rps"] {
		cols = append(cols, Column{name, rows})
	}

	meta := make(Meta)
	for i := 0; i < 32; i++ {
		name := fmt.Sprintf("a_comp_cor_%02d", i)
		cols = append(cols, Column{name, rows})
		switch {
		case i < 10:
			meta[name] = map[string]any{"Method": "aCompCor", "Mask": "CSF", "VarianceExplained": 0.05}
		case i < 20:
			meta[name] = map[string]any{"Method": "aCompCor", "Mask": "WM", "VarianceExplained": 0.04}
		default:
			meta[name] = map[string]any{"Method": "aCompCor", "Mask": "combined", "VarianceExplained": 0.02}
		}
	}

	for i, cum := range []float64{0.5, 0.8, 0.95} {
		name := fmt.Sprintf("t_comp_cor_%02d", i)
		cols = append(cols, Column{name, rows})
		meta[name] = map[string]any{"Method": "tCompCor", "CumulativeVarianceExplained": cum}
	}

	for i := 1; i <= 4; i++ {
		name := fmt.Sprintf("aroma_motion_%02d", i)
		cols = append(cols, Column{name, rows})
		meta[name] = map[string]any{"MotionNoise": i%2 == 1}
	}
	return NewFrame(cols...), meta
}

func selectComponents(t *testing.T, formula string) *Frame {
	m, e := confoundGrammar.Compile(formula)
	if e != nil {
		t.Fatalf("formula %q: unexpected error: %s", formula, e)
	}

	data, meta := componentData()
	res, _, e := m(data, meta)
	if e != nil {
		t.Fatalf("formula %q: unexpected runtime error: %s", formula, e)
	}
	return res
}

func expectColumns(t *testing.T, f *Frame, present bool, names ...string) {
	for _, name := range names {
		test.Assert(t, f.Has(name) == present, "column %s: expecting presence %v", name, present)
	}
}

func TestComponentCount(t *testing.T) {
	res := selectComponents(t, "d0-1(rps) + n_{{5; acc; Mask=CSF,WM}}")
	test.ExpectInt(t, 22, res.Width())
	expectColumns(t, res, true, "trans_y", "trans_y_derivative1", "a_comp_cor_02", "a_comp_cor_04", "a_comp_cor_14")
	expectColumns(t, res, false, "a_comp_cor_30", "a_comp_cor_05", "a_comp_cor_15")

	test.ExpectInt(t, 9, selectComponents(t, "n_{{3; acc}}").Width())
	res = selectComponents(t, "n_{{2; tcc}}")
	test.ExpectString(t, "t_comp_cor_00 t_comp_cor_01", strings.Join(res.Names(), " "))
	test.ExpectInt(t, 10, selectComponents(t, "n_{{50; a_comp_cor_*; Mask=WM}}").Width())
}

func TestComponentVariance(t *testing.T) {
	res := selectComponents(t, "d1(rps) + v_{{29.9; acc; Mask=CSF,WM}}")
	test.ExpectInt(t, 20, res.Width())
	expectColumns(t, res, true, "trans_y_derivative1", "a_comp_cor_02", "a_comp_cor_05", "a_comp_cor_17")
	expectColumns(t, res, false, "trans_y", "a_comp_cor_06", "a_comp_cor_18", "a_comp_cor_20")

	res = selectComponents(t, "v_{{75; tcc}}")
	test.ExpectString(t, "t_comp_cor_00 t_comp_cor_01", strings.Join(res.Names(), " "))
	test.ExpectInt(t, 3, selectComponents(t, "v_{{100; tcc}}").Width())
}

func TestComponentFamilies(t *testing.T) {
	res := selectComponents(t, "wm + csf + {{aroma; MotionNoise=True}}")
	test.ExpectString(t, "white_matter csf aroma_motion_01 aroma_motion_03", strings.Join(res.Names(), " "))
	expectColumns(t, res, false, "aroma_motion_02", "aroma_motion_04")

	res = selectComponents(t, "{{aroma; MotionNoise=FALSE}}")
	test.ExpectString(t, "aroma_motion_02 aroma_motion_04", strings.Join(res.Names(), " "))

	test.ExpectInt(t, 20, selectComponents(t, "{{acc; Mask=CSF,WM}}").Width())
	test.ExpectInt(t, 20, selectComponents(t, "{{acc; Mask=CSF, WM; Method=aCompCor}}").Width())
	test.ExpectInt(t, 0, selectComponents(t, "{{acc; Mask=GM}}").Width())
	test.ExpectInt(t, 20, selectComponents(t, "{{acc; VarianceExplained=0.05,0.04}}").Width())
}

func TestComponentErrors(t *testing.T) {
	samples := []string{"n_{{0; acc}}", "n_{{x; acc}}", "v_{{x; acc}}", "v_{{150; acc}}", "n_{{5}}", "n_{{5; [}}"}
	for _, formula := range samples {
		_, e := confoundGrammar.Compile(formula)
		test.ExpectErrorCode(t, grammar.ParamError, e)
	}
}
