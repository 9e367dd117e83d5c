package rules_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphummel/hwreq/internal/catalog"
	"github.com/tphummel/hwreq/internal/rules"
)

var cat = catalog.Default()

func mustIndicator(t *testing.T, in rules.IndicatorInput) rules.Indicator {
	t.Helper()
	ind, err := rules.CreateIndicator(cat, in)
	require.NoError(t, err)
	return ind
}

func memoryCapacity(t *testing.T, v string) rules.Indicator {
	return mustIndicator(t, rules.IndicatorInput{Category: catalog.Memory, FieldKey: "容量(GB)", Value: v})
}

// ---------------------------------------------------------------------------
// CreateIndicator
// ---------------------------------------------------------------------------

func TestCreateIndicator_NumericDefaultsToAtLeast(t *testing.T) {
	ind := memoryCapacity(t, " 64 ")

	assert.NotEmpty(t, ind.ID)
	assert.Equal(t, catalog.Memory, ind.Category)
	assert.Equal(t, "容量(GB)", ind.FieldKey)
	assert.Equal(t, rules.GreaterOrEqual, ind.Operator)
	require.True(t, ind.Operand.IsNumeric())
	assert.True(t, ind.Operand.Number().Equal(decimal.NewFromInt(64)))
}

func TestCreateIndicator_NumericExplicitOperator(t *testing.T) {
	tests := []struct {
		in   string
		want rules.Operator
	}{
		{"<=", rules.LessOrEqual},
		{"=", rules.Equal},
		{">", rules.Greater},
		{">>", rules.Greater},
		{"<", rules.Less},
		{" >= ", rules.GreaterOrEqual},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			ind := mustIndicator(t, rules.IndicatorInput{
				Category: catalog.Memory, FieldKey: "最大功耗(W)", Operator: tt.in, Value: "12.5",
			})
			assert.Equal(t, tt.want, ind.Operator)
		})
	}
}

func TestCreateIndicator_Enum(t *testing.T) {
	ind := mustIndicator(t, rules.IndicatorInput{
		Category: catalog.Memory, FieldKey: "硬件版本", Values: []string{"A1", " A3", "A1", ""},
	})

	assert.Equal(t, rules.Equal, ind.Operator)
	assert.False(t, ind.Operand.IsNumeric())
	assert.Equal(t, []string{"A1", "A3"}, ind.Operand.Labels())
}

func TestCreateIndicator_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   rules.IndicatorInput
		want error
	}{
		{
			name: "unknown field",
			in:   rules.IndicatorInput{Category: catalog.Memory, FieldKey: "颜色", Value: "1"},
			want: rules.ErrUnknownField,
		},
		{
			name: "unknown category",
			in:   rules.IndicatorInput{Category: "Toaster", FieldKey: "容量(GB)", Value: "1"},
			want: rules.ErrUnknownField,
		},
		{
			name: "empty numeric value",
			in:   rules.IndicatorInput{Category: catalog.Memory, FieldKey: "容量(GB)", Value: "  "},
			want: rules.ErrEmptyValue,
		},
		{
			name: "not a number",
			in:   rules.IndicatorInput{Category: catalog.Memory, FieldKey: "容量(GB)", Value: "64GB"},
			want: rules.ErrNotANumber,
		},
		{
			name: "infinity is not finite",
			in:   rules.IndicatorInput{Category: catalog.Memory, FieldKey: "容量(GB)", Value: "Inf"},
			want: rules.ErrNotANumber,
		},
		{
			name: "huge exponent",
			in:   rules.IndicatorInput{Category: catalog.Memory, FieldKey: "容量(GB)", Value: "1e999999999"},
			want: rules.ErrNotANumber,
		},
		{
			name: "tiny exponent",
			in:   rules.IndicatorInput{Category: catalog.Memory, FieldKey: "容量(GB)", Value: "1e-999999999"},
			want: rules.ErrNotANumber,
		},
		{
			name: "bad numeric operator",
			in:   rules.IndicatorInput{Category: catalog.Memory, FieldKey: "容量(GB)", Operator: "!=", Value: "1"},
			want: rules.ErrInvalidOperator,
		},
		{
			name: "empty selection",
			in:   rules.IndicatorInput{Category: catalog.Memory, FieldKey: "硬件版本", Values: []string{" "}},
			want: rules.ErrEmptySelection,
		},
		{
			name: "value outside enum",
			in:   rules.IndicatorInput{Category: catalog.Memory, FieldKey: "硬件版本", Values: []string{"A1", "Z9"}},
			want: rules.ErrInvalidEnumValue,
		},
		{
			name: "enum with comparison operator",
			in:   rules.IndicatorInput{Category: catalog.Memory, FieldKey: "硬件版本", Operator: ">=", Values: []string{"A1"}},
			want: rules.ErrInvalidOperator,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rules.CreateIndicator(cat, tt.in)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestValidationError_Message(t *testing.T) {
	_, err := rules.CreateIndicator(cat, rules.IndicatorInput{Category: catalog.Memory, FieldKey: "容量(GB)", Value: "abc"})
	require.Error(t, err)
	assert.Equal(t, "value is not a number Memory/容量(GB): abc", err.Error())

	code, ok := rules.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, rules.CodeNotANumber, code)

	_, ok = rules.CodeOf(errors.New("plain"))
	assert.False(t, ok)
}

// ---------------------------------------------------------------------------
// Rule assembly
// ---------------------------------------------------------------------------

func TestAddIndicatorToRule_AppendsWithoutMutatingInput(t *testing.T) {
	r := rules.NewRule(rules.ArchetypeGPU)
	a := memoryCapacity(t, "64")
	b := mustIndicator(t, rules.IndicatorInput{Category: catalog.Memory, FieldKey: "硬件版本", Values: []string{"A1"}})

	r1, err := rules.AddIndicatorToRule(r, a)
	require.NoError(t, err)
	r2, err := rules.AddIndicatorToRule(r1, b)
	require.NoError(t, err)

	assert.Empty(t, r.Indicators)
	assert.Len(t, r1.Indicators, 1)
	assert.Len(t, r2.Indicators, 2)
	assert.Equal(t, r.ID, r2.ID)
	assert.Equal(t, a.ID, r2.Indicators[0].ID)
	assert.Equal(t, b.ID, r2.Indicators[1].ID)

	// Appending to r1 again must not clobber r2's second slot.
	c := mustIndicator(t, rules.IndicatorInput{Category: catalog.NIC, FieldKey: "网卡版本", Values: []string{"A2"}})
	r3, err := rules.AddIndicatorToRule(r1, c)
	require.NoError(t, err)
	assert.Equal(t, b.ID, r2.Indicators[1].ID)
	assert.Equal(t, c.ID, r3.Indicators[1].ID)
}

func TestAddIndicatorToRule_DuplicateField(t *testing.T) {
	r, err := rules.AddIndicatorToRule(rules.NewRule(rules.ArchetypeCPU), memoryCapacity(t, "64"))
	require.NoError(t, err)

	_, err = rules.AddIndicatorToRule(r, memoryCapacity(t, "128"))
	assert.ErrorIs(t, err, rules.ErrDuplicateField)

	// The same key in another category is a different field.
	other := mustIndicator(t, rules.IndicatorInput{Category: catalog.SSD, FieldKey: "容量(GB)", Value: "960"})
	_, err = rules.AddIndicatorToRule(r, other)
	assert.NoError(t, err)
}

func TestFinalizeRule(t *testing.T) {
	_, err := rules.FinalizeRule(rules.ArchetypeGPU, nil)
	assert.ErrorIs(t, err, rules.ErrEmptyRule)

	inds := []rules.Indicator{
		memoryCapacity(t, "64"),
		mustIndicator(t, rules.IndicatorInput{Category: catalog.Memory, FieldKey: "硬件版本", Values: []string{"A1"}}),
	}
	r, err := rules.FinalizeRule(rules.ArchetypeGPU, inds)
	require.NoError(t, err)
	assert.Len(t, r.Indicators, len(inds))
	assert.Equal(t, rules.ArchetypeGPU, r.ServerArchetype)
	assert.NotEmpty(t, r.ID)

	_, err = rules.FinalizeRule("TPU", inds)
	assert.ErrorIs(t, err, rules.ErrInvalidArchetype)

	_, err = rules.FinalizeRule(rules.ArchetypeCPU, []rules.Indicator{inds[0], memoryCapacity(t, "32")})
	assert.ErrorIs(t, err, rules.ErrDuplicateField)
}

func TestRemoveIndicator(t *testing.T) {
	a := memoryCapacity(t, "64")
	r, err := rules.FinalizeRule(rules.ArchetypeCPU, []rules.Indicator{a})
	require.NoError(t, err)

	same := rules.RemoveIndicator(r, "missing")
	assert.Len(t, same.Indicators, 1)

	empty := rules.RemoveIndicator(r, a.ID)
	assert.Empty(t, empty.Indicators)
	assert.Len(t, r.Indicators, 1, "input rule must be untouched")

	_, err = empty.Finalize()
	assert.ErrorIs(t, err, rules.ErrEmptyRule)
}

func TestBuildRule(t *testing.T) {
	r, err := rules.BuildRule(cat, rules.RuleInput{
		ServerArchetype: rules.ArchetypeGPU,
		Indicators: []rules.IndicatorInput{
			{Category: catalog.Memory, FieldKey: "容量(GB)", Value: "64"},
			{Category: catalog.GPU, FieldKey: "显存容量(GB)", Operator: ">", Value: "40"},
		},
	})
	require.NoError(t, err)
	assert.Len(t, r.Indicators, 2)
	assert.Equal(t, []catalog.CategoryID{catalog.Memory, catalog.GPU}, r.Categories())

	_, err = rules.BuildRule(cat, rules.RuleInput{
		ServerArchetype: rules.ArchetypeGPU,
		Indicators: []rules.IndicatorInput{
			{Category: catalog.Memory, FieldKey: "容量(GB)", Value: "64"},
			{Category: catalog.Memory, FieldKey: "容量(GB)", Value: "32"},
		},
	})
	assert.ErrorIs(t, err, rules.ErrDuplicateField)
	assert.Contains(t, err.Error(), "indicator 1")

	_, err = rules.BuildRule(cat, rules.RuleInput{ServerArchetype: rules.ArchetypeCPU})
	assert.ErrorIs(t, err, rules.ErrEmptyRule)

	_, err = rules.BuildRule(cat, rules.RuleInput{ServerArchetype: ""})
	assert.ErrorIs(t, err, rules.ErrInvalidArchetype)
}

// ---------------------------------------------------------------------------
// Requirement set assembly
// ---------------------------------------------------------------------------

func TestRequirementSet_AddRemoveRule(t *testing.T) {
	t0 := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	s := rules.NewRequirementSet(" 阿里云 ", t0)
	assert.Equal(t, "阿里云", s.CustomerID)
	assert.Equal(t, t0, s.CreatedAt)
	assert.Equal(t, t0, s.UpdatedAt)

	r1, err := rules.FinalizeRule(rules.ArchetypeGPU, []rules.Indicator{memoryCapacity(t, "64")})
	require.NoError(t, err)
	r2, err := rules.FinalizeRule(rules.ArchetypeGPU, []rules.Indicator{memoryCapacity(t, "32")})
	require.NoError(t, err)

	t1 := t0.Add(time.Hour)
	s1 := rules.AddRule(s, r1, t1)
	s2 := rules.AddRule(s1, r2, t1.Add(time.Minute))

	assert.Empty(t, s.Rules)
	assert.Len(t, s2.Rules, 2, "overlapping rules are allowed")
	assert.Equal(t, t1, s1.UpdatedAt)
	assert.Equal(t, t0, s2.CreatedAt)

	got, ok := s2.FindRule(r2.ID)
	require.True(t, ok)
	assert.Equal(t, r2.ID, got.ID)

	t2 := t1.Add(time.Hour)
	s3 := rules.RemoveRule(s2, r1.ID, t2)
	assert.Len(t, s3.Rules, 1)
	assert.Equal(t, t2, s3.UpdatedAt)
	assert.Len(t, s2.Rules, 2)

	s4 := rules.RemoveRule(s3, "missing", t2.Add(time.Hour))
	assert.Equal(t, t2, s4.UpdatedAt, "no-op removal keeps updated_at")
}

func TestSave(t *testing.T) {
	now := time.Now()
	s := rules.NewRequirementSet("腾讯云", now)

	_, err := rules.Save(s)
	assert.ErrorIs(t, err, rules.ErrNoRules)

	r, err := rules.FinalizeRule(rules.ArchetypeCPU, []rules.Indicator{memoryCapacity(t, "64")})
	require.NoError(t, err)
	s = rules.AddRule(s, r, now)

	saved, err := rules.Save(s)
	require.NoError(t, err)
	assert.Equal(t, s.ID, saved.ID)

	s.CustomerID = "  "
	_, err = rules.Save(s)
	assert.ErrorIs(t, err, rules.ErrNoCustomer)
}

func TestSave_RevalidatesRules(t *testing.T) {
	s := rules.NewRequirementSet("华为云", time.Now())
	s.Rules = []rules.Rule{{ID: "r1", ServerArchetype: rules.ArchetypeCPU}}

	_, err := rules.Save(s)
	assert.ErrorIs(t, err, rules.ErrEmptyRule)
}

func TestRequirementSet_ValidateAgainstCatalog(t *testing.T) {
	s := rules.NewRequirementSet("百度云", time.Now())
	r, err := rules.FinalizeRule(rules.ArchetypeCPU, []rules.Indicator{memoryCapacity(t, "64")})
	require.NoError(t, err)
	s = rules.AddRule(s, r, time.Now())
	require.NoError(t, s.Validate(cat))

	shrunk, err := catalog.New([]catalog.CategoryDefinition{{ID: catalog.NIC, Fields: []catalog.FieldDefinition{
		{Key: "速率(Gb/s)", ValueType: catalog.Numeric},
	}}})
	require.NoError(t, err)
	assert.ErrorIs(t, s.Validate(shrunk), rules.ErrUnknownField)
}

func TestCheckIndicator(t *testing.T) {
	ok := memoryCapacity(t, "64")
	assert.NoError(t, rules.CheckIndicator(cat, ok))

	bad := ok
	bad.Operator = "~"
	assert.ErrorIs(t, rules.CheckIndicator(cat, bad), rules.ErrInvalidOperator)

	bad = ok
	bad.Operand = rules.LabelsOperand([]string{"A1"})
	assert.ErrorIs(t, rules.CheckIndicator(cat, bad), rules.ErrNotANumber)

	enum := mustIndicator(t, rules.IndicatorInput{Category: catalog.Memory, FieldKey: "硬件版本", Values: []string{"A1"}})
	bad = enum
	bad.Operand = rules.LabelsOperand([]string{"B1"})
	assert.ErrorIs(t, rules.CheckIndicator(cat, bad), rules.ErrInvalidEnumValue)

	bad = enum
	bad.Operand = rules.LabelsOperand(nil)
	assert.ErrorIs(t, rules.CheckIndicator(cat, bad), rules.ErrEmptySelection)
}

func TestRequirementSet_Summaries(t *testing.T) {
	s := rules.NewRequirementSet("京东云", time.Now())
	r1, err := rules.BuildRule(cat, rules.RuleInput{ServerArchetype: rules.ArchetypeGPU, Indicators: []rules.IndicatorInput{
		{Category: catalog.Memory, FieldKey: "容量(GB)", Value: "64"},
		{Category: catalog.HDD, FieldKey: "容量(GB)", Value: "4000"},
	}})
	require.NoError(t, err)
	r2, err := rules.BuildRule(cat, rules.RuleInput{ServerArchetype: rules.ArchetypeCPU, Indicators: []rules.IndicatorInput{
		{Category: catalog.SSD, FieldKey: "容量(GB)", Value: "960"},
		{Category: catalog.Memory, FieldKey: "Rank", Value: "2"},
	}})
	require.NoError(t, err)
	s = rules.AddRule(rules.AddRule(s, r1, time.Now()), r2, time.Now())

	assert.Equal(t, []catalog.CategoryID{catalog.Memory, catalog.HDD, catalog.SSD}, s.Categories())
	assert.Equal(t, 4, s.IndicatorCount())
}

// ---------------------------------------------------------------------------
// Operand wire format
// ---------------------------------------------------------------------------

func TestOperand_JSON(t *testing.T) {
	num := memoryCapacity(t, "63.90")
	b, err := json.Marshal(num)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"operand":"63.9"`)

	enum := mustIndicator(t, rules.IndicatorInput{Category: catalog.NIC, FieldKey: "网卡版本", Values: []string{"A2", "A1"}})
	b, err = json.Marshal(enum)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"operand":["A2","A1"]`)

	var back rules.Indicator
	require.NoError(t, json.Unmarshal(b, &back))
	assert.True(t, back.Operand.Equal(enum.Operand))
}

func TestOperand_UnmarshalJSON(t *testing.T) {
	var o rules.Operand
	require.NoError(t, json.Unmarshal([]byte(`64`), &o))
	assert.True(t, o.IsNumeric())
	assert.Equal(t, "64", o.String())

	require.NoError(t, json.Unmarshal([]byte(`" 1.5 "`), &o))
	assert.Equal(t, "1.5", o.String())

	err := json.Unmarshal([]byte(`"abc"`), &o)
	assert.ErrorIs(t, err, rules.ErrNotANumber)

	assert.Error(t, json.Unmarshal([]byte(`{"a":1}`), &o))
	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &o))

	assert.ErrorIs(t, json.Unmarshal([]byte(`"1e999999999"`), &o), rules.ErrNotANumber)
	assert.ErrorIs(t, json.Unmarshal([]byte(`1e-999999999`), &o), rules.ErrNotANumber)
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "64", want: "64"},
		{in: " 63.9 ", want: "63.9"},
		{in: "1e64", want: "1e64"},
		{in: "1e-64", want: "1e-64"},
		{in: "1e65", wantErr: true},
		{in: "1e-65", wantErr: true},
		{in: "1e999999999", wantErr: true},
		{in: "lots", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d, err := rules.ParseNumber(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, d.Equal(decimal.RequireFromString(tt.want)), "got %s", d)
		})
	}
}

func TestIndicatorInput_UnmarshalJSON(t *testing.T) {
	var in rules.IndicatorInput
	require.NoError(t, json.Unmarshal([]byte(`{"category":"Memory","field_key":"容量(GB)","value":64}`), &in))
	assert.Equal(t, catalog.Memory, in.Category)
	assert.Equal(t, "容量(GB)", in.FieldKey)
	assert.Equal(t, "64", in.Value)

	require.NoError(t, json.Unmarshal([]byte(`{"category":"Memory","field_key":"容量(GB)","operator":">","value":"63.9"}`), &in))
	assert.Equal(t, "63.9", in.Value)
	assert.Equal(t, ">", in.Operator)

	require.NoError(t, json.Unmarshal([]byte(`{"category":"NIC","field_key":"网卡版本","values":["A1"]}`), &in))
	assert.Empty(t, in.Value)
	assert.Equal(t, []string{"A1"}, in.Values)

	assert.Error(t, json.Unmarshal([]byte(`{"value":true}`), &in))
}

func TestOperator_Compare(t *testing.T) {
	d := decimal.RequireFromString
	tests := []struct {
		op       rules.Operator
		observed string
		operand  string
		want     bool
	}{
		{rules.GreaterOrEqual, "64", "64", true},
		{rules.GreaterOrEqual, "63.9", "64", false},
		{rules.LessOrEqual, "64", "64.0", true},
		{rules.Equal, "1.50", "1.5", true},
		{rules.Greater, "64", "64", false},
		{rules.Less, "-1", "0", true},
		{"~", "1", "1", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.op)+tt.observed, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.op.Compare(d(tt.observed), d(tt.operand)))
		})
	}
}
