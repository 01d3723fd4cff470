package vterm

// parserState is the small state machine driving feed(): ground state,
// ESC seen, CSI params accumulating, or OSC string accumulating.
// Grounded on apps/texelterm/parser/parser.go's mode split, reduced to
// the CSI/SGR/OSC-title subset this engine needs (spec.md §4.3).
type parserMode uint8

const (
	modeGround parserMode = iota
	modeEscape
	modeCSI
	modeOSC
)

type parserState struct {
	mode   parserMode
	params []int
	cur    int
	hasCur bool
	osc    []byte
}

func (v *VTerm) feed(r rune) {
	switch v.parser.mode {
	case modeGround:
		v.feedGround(r)
	case modeEscape:
		v.feedEscape(r)
	case modeCSI:
		v.feedCSI(r)
	case modeOSC:
		v.feedOSC(r)
	}
}

func (v *VTerm) feedGround(r rune) {
	switch r {
	case 0x1b:
		v.parser.mode = modeEscape
	case '\r':
		v.carriageReturn()
	case '\n':
		v.lineFeed()
	case '\b':
		v.backspace()
	case '\t':
		v.tab()
	case 0x07: // BEL
	default:
		if r >= 0x20 {
			v.placeRune(r)
		}
	}
}

func (v *VTerm) feedEscape(r rune) {
	switch r {
	case '[':
		v.parser.mode = modeCSI
		v.parser.params = v.parser.params[:0]
		v.parser.cur = 0
		v.parser.hasCur = false
	case ']':
		v.parser.mode = modeOSC
		v.parser.osc = v.parser.osc[:0]
	case 'c': // RIS full reset
		v.Reset(v.cols, v.rows)
	default:
		v.parser.mode = modeGround
	}
}

func (v *VTerm) feedCSI(r rune) {
	switch {
	case r >= '0' && r <= '9':
		v.parser.cur = v.parser.cur*10 + int(r-'0')
		v.parser.hasCur = true
	case r == ';':
		v.parser.params = append(v.parser.params, v.parser.curOrZero())
		v.parser.cur = 0
		v.parser.hasCur = false
	case r == '?' || r == '>' || r == '!':
		// private-mode / intermediate markers; ignored, subset scope.
	default:
		v.parser.params = append(v.parser.params, v.parser.curOrZero())
		v.dispatchCSI(r, v.parser.params)
		v.parser.mode = modeGround
	}
}

func (p *parserState) curOrZero() int {
	if p.hasCur {
		return p.cur
	}
	return 0
}

func (v *VTerm) feedOSC(r rune) {
	switch r {
	case 0x07, 0x1b: // BEL or ST (approximated, no two-byte ST handling)
		v.handleOSC(string(v.parser.osc))
		v.parser.mode = modeGround
	default:
		v.parser.osc = append(v.parser.osc, byte(r))
	}
}

func (v *VTerm) handleOSC(payload string) {
	// "0;title" or "2;title"
	if len(payload) < 2 {
		return
	}
	if payload[0] != '0' && payload[0] != '2' {
		return
	}
	if payload[1] != ';' {
		return
	}
	title := payload[2:]
	v.title = title
	if v.titleHandler != nil {
		v.titleHandler(title)
	}
}

func firstParam(params []int, def int) int {
	if len(params) == 0 || params[0] == 0 {
		return def
	}
	return params[0]
}

func (v *VTerm) dispatchCSI(cmd rune, params []int) {
	switch cmd {
	case 'A':
		v.moveCursor(0, -firstParam(params, 1))
	case 'B':
		v.moveCursor(0, firstParam(params, 1))
	case 'C':
		v.moveCursor(firstParam(params, 1), 0)
	case 'D':
		v.moveCursor(-firstParam(params, 1), 0)
	case 'H', 'f':
		row := firstParam(params, 1)
		col := 1
		if len(params) > 1 && params[1] != 0 {
			col = params[1]
		}
		v.setCursorPos(row, col)
	case 'G':
		v.cursorX = clamp(firstParam(params, 1)-1, 0, v.cols-1)
	case 'K':
		v.eraseLine(firstParam(params, 0))
	case 'J':
		v.eraseScreen(firstParam(params, 0))
	case 'm':
		v.handleSGR(params)
	case 'h', 'l':
		// DEC private modes (cursor visibility etc.) — only the
		// cursor-visibility toggle is observable from the data model.
		if len(params) > 0 && params[0] == 25 {
			v.cursorVisible = cmd == 'h'
		}
	}
}

func (v *VTerm) handleSGR(params []int) {
	if len(params) == 0 {
		params = []int{0}
	}
	i := 0
	for i < len(params) {
		p := params[i]
		switch {
		case p == 0:
			v.currentFG = v.defaultFG
			v.currentBG = v.defaultBG
			v.currentAttr = 0
		case p == 1:
			v.currentAttr |= AttrBold
		case p == 4:
			v.currentAttr |= AttrUnderline
		case p == 7:
			v.currentAttr |= AttrReverse
		case p == 22:
			v.currentAttr &^= AttrBold
		case p == 24:
			v.currentAttr &^= AttrUnderline
		case p == 27:
			v.currentAttr &^= AttrReverse
		case p >= 30 && p <= 37:
			v.currentFG = Color{Mode: ColorModeStandard, Value: uint8(p - 30)}
		case p == 39:
			v.currentFG = v.defaultFG
		case p >= 40 && p <= 47:
			v.currentBG = Color{Mode: ColorModeStandard, Value: uint8(p - 40)}
		case p == 49:
			v.currentBG = v.defaultBG
		case p == 38:
			if i+2 < len(params) && params[i+1] == 5 {
				v.currentFG = Color{Mode: ColorMode256, Value: uint8(params[i+2])}
				i += 2
			} else if i+4 < len(params) && params[i+1] == 2 {
				v.currentFG = Color{Mode: ColorModeRGB, R: uint8(params[i+2]), G: uint8(params[i+3]), B: uint8(params[i+4])}
				i += 4
			}
		case p == 48:
			if i+2 < len(params) && params[i+1] == 5 {
				v.currentBG = Color{Mode: ColorMode256, Value: uint8(params[i+2])}
				i += 2
			} else if i+4 < len(params) && params[i+1] == 2 {
				v.currentBG = Color{Mode: ColorModeRGB, R: uint8(params[i+2]), G: uint8(params[i+3]), B: uint8(params[i+4])}
				i += 4
			}
		case p >= 90 && p <= 97:
			v.currentFG = Color{Mode: ColorModeStandard, Value: uint8(p - 90 + 8)}
		case p >= 100 && p <= 107:
			v.currentBG = Color{Mode: ColorModeStandard, Value: uint8(p - 100 + 8)}
		}
		i++
	}
}
