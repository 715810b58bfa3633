package rules

import "time"

// DefaultRules is the built-in corpus used when no rules file, demo file
// or embedded demo text yields any rule.
func DefaultRules(now time.Time) []Rule {
	seed := []struct {
		point, title, content, punishment, category string
	}{
		{
			"1",
			"Сотрудники государственных организаций обязаны...",
			"Сотрудники государственных организаций обязаны соблюдать служебную дисциплину",
			"WARN",
			"Общие правила",
		},
		{
			"2",
			"Форма одежды должна соответствовать...",
			"Форма одежды должна соответствовать установленным стандартам организации",
			"Demorgan 35 минут",
			"Внешний вид",
		},
		{
			"6",
			"Изъятие нелегальных предметов...",
			"Изъятие нелегальных предметов производится исключительно через функционал сервера",
			"Demorgan 35 минут / WARN",
			"Процедуры",
		},
	}

	out := make([]Rule, 0, len(seed))
	for _, s := range seed {
		r := NewRule(s.point, s.content, s.punishment, s.category, now)
		r.Title = s.title
		out = append(out, r)
	}
	return out
}
