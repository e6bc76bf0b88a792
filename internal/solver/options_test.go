package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{"solver set", Options{Solver: "ipopt"}, false},
		{"executable only", Options{Executable: "/opt/bin/gjh"}, false},
		{"empty", Options{}, true},
		{"negative timeout", Options{Solver: "gjh", Timeout: -1}, true},
		{"bad key", Options{Solver: "gjh", SolverOptions: map[string]string{"a b": "1"}}, true},
		{"empty key", Options{Solver: "gjh", SolverOptions: map[string]string{"": "1"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if tt.wantErr {
				var ve *ValidationError
				assert.ErrorAs(t, err, &ve)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestOptionsEnv(t *testing.T) {
	_, ok := Options{Solver: "gjh"}.OptionsEnv()
	assert.False(t, ok)

	entry, ok := Options{
		Solver:        "ipopt",
		SolverOptions: map[string]string{"max_iter": "10", "halt_on_ampl_error": "yes", "wantsol": ""},
	}.OptionsEnv()
	assert.True(t, ok)
	assert.Equal(t, "ipopt_options=halt_on_ampl_error=yes max_iter=10 wantsol", entry)

	entry, _ = Options{
		Executable:    "/opt/ampl/gjh.exe",
		SolverOptions: map[string]string{"k": "v"},
	}.OptionsEnv()
	assert.Equal(t, "gjh_options=k=v", entry)
}

func TestOptionsClone(t *testing.T) {
	o := Options{Solver: "gjh", SolverOptions: map[string]string{"a": "1"}}
	c := o.Clone()
	c.SolverOptions["a"] = "2"
	assert.Equal(t, "1", o.SolverOptions["a"])
	assert.Nil(t, Options{}.Clone().SolverOptions)
}

func TestStatusFromCode(t *testing.T) {
	assert.Equal(t, StatusOK, statusFromCode(0))
	assert.Equal(t, StatusWarning, statusFromCode(150))
	assert.Equal(t, StatusInfeasible, statusFromCode(200))
	assert.Equal(t, StatusUnbounded, statusFromCode(300))
	assert.Equal(t, StatusLimit, statusFromCode(400))
	assert.Equal(t, StatusError, statusFromCode(500))
	assert.Equal(t, StatusUnknown, statusFromCode(-1))
}

func TestModelPaths(t *testing.T) {
	m := &Model{NLFile: "/data/rosen.nl"}
	assert.Equal(t, "rosen", m.Stem())
	col, row := m.LabelFiles()
	assert.Equal(t, "/data/rosen.col", col)
	assert.Equal(t, "/data/rosen.row", row)

	m.Name = "custom"
	assert.Equal(t, "custom", m.Stem())
}
