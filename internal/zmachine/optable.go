package zmachine

import "fmt"

// Op identifies an instruction's operation independent of its encoding.
// Opcode bytes resolve to an Op once per story version.
type Op uint8

// Operations, grouped by the operand form they are encoded under.
const (
	OpIllegal Op = iota

	// 2OP
	OpJe
	OpJl
	OpJg
	OpDecChk
	OpIncChk
	OpJin
	OpTest
	OpOr
	OpAnd
	OpTestAttr
	OpSetAttr
	OpClearAttr
	OpStore
	OpInsertObj
	OpLoadw
	OpLoadb
	OpGetProp
	OpGetPropAddr
	OpGetNextProp
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpCall2s
	OpCall2n
	OpSetColour
	OpThrow

	// 1OP
	OpJz
	OpGetSibling
	OpGetChild
	OpGetParent
	OpGetPropLen
	OpInc
	OpDec
	OpPrintAddr
	OpCall1s
	OpRemoveObj
	OpPrintObj
	OpRet
	OpJump
	OpPrintPaddr
	OpLoad
	OpNot
	OpCall1n

	// 0OP
	OpRtrue
	OpRfalse
	OpPrint
	OpPrintRet
	OpNop
	OpSaveBranch
	OpSaveStore
	OpRestoreBranch
	OpRestoreStore
	OpRestart
	OpRetPopped
	OpPop
	OpCatch
	OpQuit
	OpNewLine
	OpShowStatus
	OpVerify
	OpPiracy

	// VAR
	OpCallVs
	OpStorew
	OpStoreb
	OpPutProp
	OpSread
	OpAread
	OpPrintChar
	OpPrintNum
	OpRandom
	OpPush
	OpPull
	OpPullStack
	OpSplitWindow
	OpSetWindow
	OpCallVs2
	OpEraseWindow
	OpEraseLine
	OpSetCursor
	OpGetCursor
	OpSetTextStyle
	OpBufferMode
	OpOutputStream
	OpInputStream
	OpSoundEffect
	OpReadChar
	OpScanTable
	OpCallVn
	OpCallVn2
	OpTokenise
	OpEncodeText
	OpCopyTable
	OpPrintTable
	OpCheckArgCount

	// EXT
	OpSaveTable
	OpRestoreTable
	OpLogShift
	OpArtShift
	OpSetFont
	OpDrawPicture
	OpPictureData
	OpErasePicture
	OpSetMargins
	OpSaveUndo
	OpRestoreUndo
	OpPrintUnicode
	OpCheckUnicode
	OpSetTrueColour
	OpMoveWindow
	OpWindowSize
	OpWindowStyle
	OpGetWindProp
	OpScrollWindow
	OpPopStack
	OpReadMouse
	OpMouseWindow
	OpPushStack
	OpPutWindProp
	OpPrintForm
	OpMakeMenu
	OpPictureTable
	OpBufferScreen

	numOps
)

type opInfo struct {
	name   string
	store  bool
	branch bool
}

var opInfos = [numOps]opInfo{
	OpIllegal: {name: "illegal"},

	OpJe:          {"je", false, true},
	OpJl:          {"jl", false, true},
	OpJg:          {"jg", false, true},
	OpDecChk:      {"dec_chk", false, true},
	OpIncChk:      {"inc_chk", false, true},
	OpJin:         {"jin", false, true},
	OpTest:        {"test", false, true},
	OpOr:          {"or", true, false},
	OpAnd:         {"and", true, false},
	OpTestAttr:    {"test_attr", false, true},
	OpSetAttr:     {"set_attr", false, false},
	OpClearAttr:   {"clear_attr", false, false},
	OpStore:       {"store", false, false},
	OpInsertObj:   {"insert_obj", false, false},
	OpLoadw:       {"loadw", true, false},
	OpLoadb:       {"loadb", true, false},
	OpGetProp:     {"get_prop", true, false},
	OpGetPropAddr: {"get_prop_addr", true, false},
	OpGetNextProp: {"get_next_prop", true, false},
	OpAdd:         {"add", true, false},
	OpSub:         {"sub", true, false},
	OpMul:         {"mul", true, false},
	OpDiv:         {"div", true, false},
	OpMod:         {"mod", true, false},
	OpCall2s:      {"call_2s", true, false},
	OpCall2n:      {"call_2n", false, false},
	OpSetColour:   {"set_colour", false, false},
	OpThrow:       {"throw", false, false},

	OpJz:         {"jz", false, true},
	OpGetSibling: {"get_sibling", true, true},
	OpGetChild:   {"get_child", true, true},
	OpGetParent:  {"get_parent", true, false},
	OpGetPropLen: {"get_prop_len", true, false},
	OpInc:        {"inc", false, false},
	OpDec:        {"dec", false, false},
	OpPrintAddr:  {"print_addr", false, false},
	OpCall1s:     {"call_1s", true, false},
	OpRemoveObj:  {"remove_obj", false, false},
	OpPrintObj:   {"print_obj", false, false},
	OpRet:        {"ret", false, false},
	OpJump:       {"jump", false, false},
	OpPrintPaddr: {"print_paddr", false, false},
	OpLoad:       {"load", true, false},
	OpNot:        {"not", true, false},
	OpCall1n:     {"call_1n", false, false},

	OpRtrue:         {"rtrue", false, false},
	OpRfalse:        {"rfalse", false, false},
	OpPrint:         {"print", false, false},
	OpPrintRet:      {"print_ret", false, false},
	OpNop:           {"nop", false, false},
	OpSaveBranch:    {"save", false, true},
	OpSaveStore:     {"save", true, false},
	OpRestoreBranch: {"restore", false, true},
	OpRestoreStore:  {"restore", true, false},
	OpRestart:       {"restart", false, false},
	OpRetPopped:     {"ret_popped", false, false},
	OpPop:           {"pop", false, false},
	OpCatch:         {"catch", true, false},
	OpQuit:          {"quit", false, false},
	OpNewLine:       {"new_line", false, false},
	OpShowStatus:    {"show_status", false, false},
	OpVerify:        {"verify", false, true},
	OpPiracy:        {"piracy", false, true},

	OpCallVs:        {"call_vs", true, false},
	OpStorew:        {"storew", false, false},
	OpStoreb:        {"storeb", false, false},
	OpPutProp:       {"put_prop", false, false},
	OpSread:         {"sread", false, false},
	OpAread:         {"aread", true, false},
	OpPrintChar:     {"print_char", false, false},
	OpPrintNum:      {"print_num", false, false},
	OpRandom:        {"random", true, false},
	OpPush:          {"push", false, false},
	OpPull:          {"pull", false, false},
	OpPullStack:     {"pull", true, false},
	OpSplitWindow:   {"split_window", false, false},
	OpSetWindow:     {"set_window", false, false},
	OpCallVs2:       {"call_vs2", true, false},
	OpEraseWindow:   {"erase_window", false, false},
	OpEraseLine:     {"erase_line", false, false},
	OpSetCursor:     {"set_cursor", false, false},
	OpGetCursor:     {"get_cursor", false, false},
	OpSetTextStyle:  {"set_text_style", false, false},
	OpBufferMode:    {"buffer_mode", false, false},
	OpOutputStream:  {"output_stream", false, false},
	OpInputStream:   {"input_stream", false, false},
	OpSoundEffect:   {"sound_effect", false, false},
	OpReadChar:      {"read_char", true, false},
	OpScanTable:     {"scan_table", true, true},
	OpCallVn:        {"call_vn", false, false},
	OpCallVn2:       {"call_vn2", false, false},
	OpTokenise:      {"tokenise", false, false},
	OpEncodeText:    {"encode_text", false, false},
	OpCopyTable:     {"copy_table", false, false},
	OpPrintTable:    {"print_table", false, false},
	OpCheckArgCount: {"check_arg_count", false, true},

	OpSaveTable:     {"save", true, false},
	OpRestoreTable:  {"restore", true, false},
	OpLogShift:      {"log_shift", true, false},
	OpArtShift:      {"art_shift", true, false},
	OpSetFont:       {"set_font", true, false},
	OpDrawPicture:   {"draw_picture", false, false},
	OpPictureData:   {"picture_data", false, true},
	OpErasePicture:  {"erase_picture", false, false},
	OpSetMargins:    {"set_margins", false, false},
	OpSaveUndo:      {"save_undo", true, false},
	OpRestoreUndo:   {"restore_undo", true, false},
	OpPrintUnicode:  {"print_unicode", false, false},
	OpCheckUnicode:  {"check_unicode", true, false},
	OpSetTrueColour: {"set_true_colour", false, false},
	OpMoveWindow:    {"move_window", false, false},
	OpWindowSize:    {"window_size", false, false},
	OpWindowStyle:   {"window_style", false, false},
	OpGetWindProp:   {"get_wind_prop", true, false},
	OpScrollWindow:  {"scroll_window", false, false},
	OpPopStack:      {"pop_stack", false, false},
	OpReadMouse:     {"read_mouse", false, false},
	OpMouseWindow:   {"mouse_window", false, false},
	OpPushStack:     {"push_stack", false, true},
	OpPutWindProp:   {"put_wind_prop", false, false},
	OpPrintForm:     {"print_form", false, false},
	OpMakeMenu:      {"make_menu", false, true},
	OpPictureTable:  {"picture_table", false, false},
	OpBufferScreen:  {"buffer_screen", true, false},
}

func (op Op) String() string {
	if op < numOps {
		return opInfos[op].name
	}
	return fmt.Sprintf("Op(%d)", uint8(op))
}

// Stores reports whether the instruction is followed by a result variable.
func (op Op) Stores() bool { return op < numOps && opInfos[op].store }

// Branches reports whether the instruction is followed by a branch offset.
func (op Op) Branches() bool { return op < numOps && opInfos[op].branch }

type form uint8

const (
	form2OP form = iota
	form1OP
	form0OP
	formVAR
	formEXT
)

var (
	ops2 = [32]Op{
		0x01: OpJe, 0x02: OpJl, 0x03: OpJg, 0x04: OpDecChk,
		0x05: OpIncChk, 0x06: OpJin, 0x07: OpTest, 0x08: OpOr,
		0x09: OpAnd, 0x0a: OpTestAttr, 0x0b: OpSetAttr, 0x0c: OpClearAttr,
		0x0d: OpStore, 0x0e: OpInsertObj, 0x0f: OpLoadw, 0x10: OpLoadb,
		0x11: OpGetProp, 0x12: OpGetPropAddr, 0x13: OpGetNextProp, 0x14: OpAdd,
		0x15: OpSub, 0x16: OpMul, 0x17: OpDiv, 0x18: OpMod,
		0x19: OpCall2s, 0x1a: OpCall2n, 0x1b: OpSetColour, 0x1c: OpThrow,
	}
	ops1 = [16]Op{
		OpJz, OpGetSibling, OpGetChild, OpGetParent,
		OpGetPropLen, OpInc, OpDec, OpPrintAddr,
		OpCall1s, OpRemoveObj, OpPrintObj, OpRet,
		OpJump, OpPrintPaddr, OpLoad, OpNot,
	}
	ops0 = [16]Op{
		OpRtrue, OpRfalse, OpPrint, OpPrintRet,
		OpNop, OpSaveBranch, OpRestoreBranch, OpRestart,
		OpRetPopped, OpPop, OpQuit, OpNewLine,
		OpShowStatus, OpVerify, OpIllegal, OpPiracy,
	}
	opsVar = [32]Op{
		OpCallVs, OpStorew, OpStoreb, OpPutProp,
		OpSread, OpPrintChar, OpPrintNum, OpRandom,
		OpPush, OpPull, OpSplitWindow, OpSetWindow,
		OpCallVs2, OpEraseWindow, OpEraseLine, OpSetCursor,
		OpGetCursor, OpSetTextStyle, OpBufferMode, OpOutputStream,
		OpInputStream, OpSoundEffect, OpReadChar, OpScanTable,
		OpNot, OpCallVn, OpCallVn2, OpTokenise,
		OpEncodeText, OpCopyTable, OpPrintTable, OpCheckArgCount,
	}
	opsExt = [30]Op{
		OpSaveTable, OpRestoreTable, OpLogShift, OpArtShift,
		OpSetFont, OpDrawPicture, OpPictureData, OpErasePicture,
		OpSetMargins, OpSaveUndo, OpRestoreUndo, OpPrintUnicode,
		OpCheckUnicode, OpSetTrueColour, OpIllegal, OpIllegal,
		OpMoveWindow, OpWindowSize, OpWindowStyle, OpGetWindProp,
		OpScrollWindow, OpPopStack, OpReadMouse, OpMouseWindow,
		OpPushStack, OpPutWindProp, OpPrintForm, OpMakeMenu,
		OpPictureTable, OpBufferScreen,
	}
)

// minVersion gives the first version an operation exists in; zero entries
// exist in all versions.
var minVersion = [numOps]uint8{
	OpCall2s:     4,
	OpCall2n:     5,
	OpSetColour:  5,
	OpThrow:      5,
	OpCall1s:     4,
	OpCall1n:     5,
	OpCatch:      5,
	OpShowStatus: 3,
	OpVerify:     3,
	OpPiracy:     5,

	OpAread:         5,
	OpPullStack:     6,
	OpSplitWindow:   3,
	OpSetWindow:     3,
	OpCallVs2:       4,
	OpEraseWindow:   4,
	OpEraseLine:     4,
	OpSetCursor:     4,
	OpGetCursor:     4,
	OpSetTextStyle:  4,
	OpBufferMode:    4,
	OpOutputStream:  3,
	OpInputStream:   3,
	OpSoundEffect:   3,
	OpReadChar:      4,
	OpScanTable:     4,
	OpCallVn:        5,
	OpCallVn2:       5,
	OpTokenise:      5,
	OpEncodeText:    5,
	OpCopyTable:     5,
	OpPrintTable:    5,
	OpCheckArgCount: 5,

	OpSaveTable:     5,
	OpRestoreTable:  5,
	OpLogShift:      5,
	OpArtShift:      5,
	OpSetFont:       5,
	OpSaveUndo:      5,
	OpRestoreUndo:   5,
	OpPrintUnicode:  5,
	OpCheckUnicode:  5,
	OpSetTrueColour: 5,
	OpDrawPicture:   6,
	OpPictureData:   6,
	OpErasePicture:  6,
	OpSetMargins:    6,
	OpMoveWindow:    6,
	OpWindowSize:    6,
	OpWindowStyle:   6,
	OpGetWindProp:   6,
	OpScrollWindow:  6,
	OpPopStack:      6,
	OpReadMouse:     6,
	OpMouseWindow:   6,
	OpPushStack:     6,
	OpPutWindProp:   6,
	OpPrintForm:     6,
	OpMakeMenu:      6,
	OpPictureTable:  6,
	OpBufferScreen:  6,
}

// resolveOp maps an opcode number under a form to the operation it means
// in the given story version.
func resolveOp(f form, num uint8, version uint8) Op {
	var op Op
	switch f {
	case form2OP:
		op = ops2[num&0x1f]
	case form1OP:
		op = ops1[num&0x0f]
		if op == OpNot && version >= 5 {
			op = OpCall1n
		}
	case form0OP:
		op = ops0[num&0x0f]
		switch {
		case op == OpSaveBranch && version >= 5,
			op == OpRestoreBranch && version >= 5:
			op = OpIllegal
		case op == OpSaveBranch && version == 4:
			op = OpSaveStore
		case op == OpRestoreBranch && version == 4:
			op = OpRestoreStore
		case op == OpPop && version >= 5:
			op = OpCatch
		}
	case formVAR:
		op = opsVar[num&0x1f]
		switch {
		case op == OpSread && version >= 5:
			op = OpAread
		case op == OpPull && version == 6:
			op = OpPullStack
		case op == OpNot && version < 5:
			op = OpIllegal
		}
	case formEXT:
		if version < 5 || int(num) >= len(opsExt) {
			return OpIllegal
		}
		op = opsExt[num]
	}
	if version < minVersion[op] {
		return OpIllegal
	}
	return op
}

// opTable is the per-version decoding of opcode bytes.
type opTable struct {
	byByte [256]Op
	ext    [256]Op
}

func newOpTable(version uint8) *opTable {
	var t opTable
	for b := 0; b < 256; b++ {
		var f form
		switch {
		case b < 0x80, b >= 0xc0 && b < 0xe0:
			f = form2OP
		case b < 0xb0:
			f = form1OP
		case b < 0xc0:
			f = form0OP
		default:
			f = formVAR
		}
		t.byByte[b] = resolveOp(f, uint8(b), version)
		t.ext[b] = resolveOp(formEXT, uint8(b), version)
	}
	return &t
}
