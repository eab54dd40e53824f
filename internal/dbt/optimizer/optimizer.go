// Package optimizer drives component D: it turns the set-specific pass
// list an AOS Solver picks (spec §4.D, §4.E) into a concrete sequence of
// internal/dbt/ssa transformations run over every function of a module.
// The pass-code enum and dispatch switch are ported from
// AOS/AOSIROpt.cpp's populateFuncPassManager.
package optimizer

import (
	"fmt"

	"github.com/OpenISA/oi-dbt/internal/dbt/ssa"
)

// PassCode names one optimization pass a SetOpts entry may request.
type PassCode int

const (
	PassNone PassCode = iota
	PassDCE
	PassSimplifyCFG
	PassReassociate
	PassGVN
	PassDIE
	PassMem2Reg
	PassLICM
	PassMemCpyOpt
	PassLoopUnswitch
	PassIndVars
	PassLoopDeletion
	PassLoopPredication
	PassLoopUnroll
	PassInstCombine
	PassDSE
	PassADCE
	PassLoopIdiom
	PassBasicAA
	PassDomTree
	PassLoopRotate
)

var passNames = map[PassCode]string{
	PassNone:            "NONE",
	PassDCE:             "DCE",
	PassSimplifyCFG:     "SIMPLIFYCFG",
	PassReassociate:     "REASSOCIATE",
	PassGVN:             "GVN",
	PassDIE:             "DIE",
	PassMem2Reg:         "MEM2REG",
	PassLICM:            "LICM",
	PassMemCpyOpt:       "MEMCPYOPT",
	PassLoopUnswitch:    "LOOP_UNSWITCH",
	PassIndVars:         "INDVARS",
	PassLoopDeletion:    "LOOP_DELETION",
	PassLoopPredication: "LOOP_PREDICATION",
	PassLoopUnroll:      "LOOP_UNROLL",
	PassInstCombine:     "INSTCOMBINE",
	PassDSE:             "DSE",
	PassADCE:            "ADCE",
	PassLoopIdiom:       "LOOP_IDIOM",
	PassBasicAA:         "BASICAA",
	PassDomTree:         "DOMTREE",
	PassLoopRotate:      "LOOP_ROTATE",
}

func (c PassCode) String() string {
	if n, ok := passNames[c]; ok {
		return n
	}
	return fmt.Sprintf("PassCode(%d)", int(c))
}

// Level is the optimization level a SetOpts entry selects (spec §4.D). It
// is passed to Run but does not restrict which passes may be named.
type Level int

const (
	LevelNone Level = iota
	LevelBasic
	LevelAggressive
)

// UnknownPassError is returned by Run when passList names a PassCode this
// package does not recognize; per spec §4.D this is fatal to the caller.
type UnknownPassError struct{ Code PassCode }

func (e *UnknownPassError) Error() string {
	return fmt.Sprintf("optimizer: unknown pass code %d", int(e.Code))
}

// passFn is one entry of the pass table; fn is nil for passes that have no
// transformation of their own (pure analyses, and loop passes this
// reference compiler does not implement — see ssa/pass.go).
type passFn struct {
	name string
	fn   func(*ssa.Function)
}

var passTable = map[PassCode]passFn{
	PassNone:            {"NONE", nil},
	PassDCE:             {"DCE", ssa.DCE},
	PassSimplifyCFG:     {"SIMPLIFYCFG", ssa.SimplifyCFG},
	PassReassociate:     {"REASSOCIATE", ssa.ConstFold},
	PassGVN:             {"GVN", ssa.GVN},
	PassDIE:             {"DIE", ssa.DCE},
	PassMem2Reg:         {"MEM2REG", ssa.Mem2Reg},
	PassLICM:            {"LICM", nil},
	PassMemCpyOpt:       {"MEMCPYOPT", nil},
	PassLoopUnswitch:    {"LOOP_UNSWITCH", nil},
	PassIndVars:         {"INDVARS", nil},
	PassLoopDeletion:    {"LOOP_DELETION", nil},
	PassLoopPredication: {"LOOP_PREDICATION", nil},
	PassLoopUnroll:      {"LOOP_UNROLL", nil},
	PassInstCombine:     {"INSTCOMBINE", ssa.ConstFold},
	PassDSE:             {"DSE", ssa.DSE},
	PassADCE:            {"ADCE", ssa.ADCE},
	PassLoopIdiom:       {"LOOP_IDIOM", nil},
	PassBasicAA:         {"BASICAA", nil},
	PassDomTree:         {"DOMTREE", nil},
	PassLoopRotate:      {"LOOP_ROTATE", nil},
}

// Run populates a function-pass pipeline from passList and runs it over
// every function in mod, in passList order, matching
// populateFuncPassManager's single linear pipeline (there is no separate
// module-pass stage in this reference compiler). ssa.LayoutBlocks is
// re-run after every pass that has a transformation. level is not read;
// every level accepts the same pass vocabulary.
func Run(mod *ssa.Module, passList []PassCode, level Level) error {
	for _, code := range passList {
		entry, ok := passTable[code]
		if !ok {
			return &UnknownPassError{Code: code}
		}
		if entry.fn == nil {
			continue
		}
		for _, fn := range mod.Funcs {
			entry.fn(fn)
			ssa.LayoutBlocks(fn)
		}
	}
	return nil
}
