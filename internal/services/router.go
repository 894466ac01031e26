package services

// Classification is the complexity tier of a question.
type Classification string

const (
	Simple  Classification = "simple"
	Complex Classification = "complex"
)

// ModelRouter maps a classification onto a model id. Anything but Complex
// goes to the default model.
type ModelRouter struct {
	defaultModel   string
	reasoningModel string
}

func NewModelRouter(defaultModel, reasoningModel string) *ModelRouter {
	return &ModelRouter{defaultModel: defaultModel, reasoningModel: reasoningModel}
}

func (r *ModelRouter) Select(c Classification) string {
	if c == Complex {
		return r.reasoningModel
	}
	return r.defaultModel
}

func (r *ModelRouter) DefaultModel() string {
	return r.defaultModel
}
