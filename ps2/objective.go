package ps2

import (
	"github.com/goliatone/go-census/census"
)

// ObjectiveParams is the number of generic parameter slots of an objective.
const ObjectiveParams = 13

// Objective is a directive or achievement goal. Its meaning depends on the
// objective type, which also explains the parameter slots.
type Objective struct {
	census.Object
	TypeID  int
	GroupID *int
	// Params holds param1..param13 in order. Unset slots are empty.
	Params [ObjectiveParams]string
}

// Param returns slot n, counting from one like the payload keys.
func (o *Objective) Param(n int) (string, bool) {
	if n < 1 || n > ObjectiveParams || o.Params[n-1] == "" {
		return "", false
	}
	return o.Params[n-1], true
}

type objectiveKind struct{}

func (objectiveKind) TypeName() string   { return "Objective" }
func (objectiveKind) Collection() string { return "objective" }
func (objectiveKind) IDField() string    { return "objective_id" }

func (objectiveKind) Build(obj census.Object, d *census.Decoder) (*Objective, error) {
	o := &Objective{
		Object:  obj,
		TypeID:  d.Int("objective_type_id"),
		GroupID: d.OptionalInt("objective_group_id"),
	}
	copy(o.Params[:], d.Params("param", ObjectiveParams))
	return o, nil
}
