package basics

import (
	"tablelinker/internal/convertor"
	"tablelinker/internal/params"
)

type noop struct{ convertor.Base }

var noopMeta = &convertor.Meta{
	Key:    "noop",
	Name:   "何もしません",
	Params: params.NewSet(),
}

func newNoop() convertor.Convertor { return noop{} }

func (noop) Meta() *convertor.Meta { return noopMeta }

var acopyMeta = &convertor.Meta{
	Key:         "acopy",
	Name:        "列のコピー",
	Description: "列をコピーします",
	Params:      convertor.InputOutputParams(),
	CanApply:    convertor.SingleColumn,
}

func newAttrCopy() convertor.Convertor {
	return convertor.NewInputOutput(acopyMeta, nil, nil)
}
