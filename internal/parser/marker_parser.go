// Package parser маршрутизирует фрагменты потокового ответа модели по
// служебным глифам: текст повествования, варианты действий, промпт картинки.
package parser

import (
	"strings"

	"novel-game/internal/model"
)

// Служебные глифы. Модель вставляет их по инструкции из начального промпта,
// в обычном тексте они не встречаются.
const (
	GlyphAction = "🥒" // Начало варианта действия
	GlyphPhoto  = "📷" // Граница промпта картинки
	GlyphWin    = "🏁"
	GlyphDeath  = "💀"
)

// Destination - куда направлен фрагмент.
type Destination int

const (
	DestNone        Destination = iota // Пустой текст, событий нет
	DestNarrative                      // Панель повествования
	DestChoiceSlot                     // Слот варианта Routed.Slot
	DestImagePrompt                    // Буфер промпта картинки
	DestDiscard                        // Вариант сверх количества слотов
)

func (d Destination) String() string {
	switch d {
	case DestNone:
		return "none"
	case DestNarrative:
		return "narrative"
	case DestChoiceSlot:
		return "choice_slot"
	case DestImagePrompt:
		return "image_prompt"
	case DestDiscard:
		return "discard"
	default:
		return "unknown"
	}
}

// State - состояние маршрутизатора в пределах одного хода.
type State struct {
	ActionIndex            int // -1 до первого глифа действия
	InActionMode           bool
	ImagePromptOccurrences int
	InImagePromptMode      bool
}

// NewState возвращает состояние начала хода.
func NewState() State {
	return State{ActionIndex: -1}
}

// Routed - результат маршрутизации одного фрагмента.
type Routed struct {
	Destination Destination
	Slot        int
	Text        string // Текст без глифов победы/смерти
	Win         bool
	Death       bool
}

// Route - чистая функция (состояние, фрагмент) -> (новое состояние, маршрут).
//
// Приоритет проверок: глиф действия, глиф фото, победа, смерть.
// Глифы победы и смерти вырезаются из текста, глифы действия и фото остаются.
// После первого глифа действия весь остаток хода уходит в слоты вариантов.
// Захват промпта картинки активен, пока фрагментов с глифом фото было нечетное число;
// фрагмент, закрывающий захват, тоже попадает в буфер.
func Route(st State, text string) (State, Routed) {
	if strings.Contains(text, GlyphAction) {
		st.ActionIndex++
		st.InActionMode = true
	}

	// Фрагмент с глифом фото считается один раз, сколько бы глифов в нем ни было
	photoBearing := strings.Contains(text, GlyphPhoto)
	if photoBearing {
		st.ImagePromptOccurrences++
	}

	var r Routed
	if strings.Contains(text, GlyphWin) {
		text = strings.ReplaceAll(text, GlyphWin, "")
		r.Win = true
	}
	if strings.Contains(text, GlyphDeath) {
		text = strings.ReplaceAll(text, GlyphDeath, "")
		r.Death = true
	}
	r.Text = text

	capturing := st.InImagePromptMode || photoBearing
	st.InImagePromptMode = st.ImagePromptOccurrences%2 == 1

	switch {
	case text == "":
		r.Destination = DestNone
	case st.InActionMode:
		if st.ActionIndex >= model.ChoiceSlots {
			r.Destination = DestDiscard
		} else {
			r.Destination = DestChoiceSlot
			r.Slot = st.ActionIndex
		}
	case capturing:
		r.Destination = DestImagePrompt
	default:
		r.Destination = DestNarrative
	}
	return st, r
}

// MarkerParser хранит State между фрагментами. Не потокобезопасен:
// им владеет только управляющая горутина.
type MarkerParser struct {
	state State
}

// New создает парсер в состоянии начала хода.
func New() *MarkerParser {
	return &MarkerParser{state: NewState()}
}

// Feed маршрутизирует очередной фрагмент.
func (p *MarkerParser) Feed(text string) Routed {
	var r Routed
	p.state, r = Route(p.state, text)
	return r
}

// State возвращает текущее состояние.
func (p *MarkerParser) State() State {
	return p.state
}

// Reset сбрасывает флаги перед новым ходом.
func (p *MarkerParser) Reset() {
	p.state = NewState()
}
