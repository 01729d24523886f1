package content

import (
	"strings"

	"novel-game/internal/model"
)

// Picker выбирает индекс в [0, n). *rand.Rand из math/rand/v2 подходит.
type Picker interface {
	IntN(n int) int
}

// Setup - конкретный выбор из пулов контента для одной сессии.
type Setup struct {
	Objective     string
	Theme         string
	WritingStyle  string
	ImageStyle    string
	FailStates    string
	InitialPrompt string // Шаблон после подстановки
	RandomEvents  []string
}

// NewSetup случайно выбирает цель, тему, стиль текста и стиль картинок
// и подставляет их в шаблон начального промпта.
func (d *Document) NewSetup(p Picker) Setup {
	s := Setup{
		Objective:    pick(p, d.Objectives),
		Theme:        pick(p, d.Themes),
		WritingStyle: pick(p, d.WritingStyles),
		ImageStyle:   pick(p, d.ImageStyles),
		FailStates:   strings.Join(d.FailStates, ", "),
		RandomEvents: append([]string(nil), d.RandomEvents...),
	}
	s.InitialPrompt = Substitute(strings.Join(d.InitialPrompt, ""), s.Objective, s.WritingStyle, s.Theme, s.FailStates)
	return s
}

// Substitute заменяет токены шаблона. Порядок замен фиксирован:
// OBJECTIVE, STYLE, THEME, FAIL_STATES.
func Substitute(template, objective, style, theme, failStates string) string {
	out := strings.ReplaceAll(template, TokenObjective, objective)
	out = strings.ReplaceAll(out, TokenStyle, style)
	out = strings.ReplaceAll(out, TokenTheme, theme)
	out = strings.ReplaceAll(out, TokenFailStates, failStates)
	return out
}

// Seed возвращает затравочный диалог: системный промпт и начальный промпт игрока.
func (s Setup) Seed(systemPrompt string) model.Transcript {
	return model.Transcript{
		{Role: model.RoleSystem, Content: systemPrompt},
		{Role: model.RoleUser, Content: s.InitialPrompt},
	}
}

func pick(p Picker, pool []string) string {
	if len(pool) == 0 {
		return ""
	}
	return pool[p.IntN(len(pool))]
}
