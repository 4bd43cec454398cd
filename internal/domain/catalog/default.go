package catalog

import "github.com/okian/cogdiag/internal/domain/model"

func higher(name string, lo, hi float64) model.TestDescriptor {
	return model.TestDescriptor{Name: name, Min: lo, Max: hi, Polarity: model.HigherIsBetter}
}

func lower(name string, lo, hi float64) model.TestDescriptor {
	return model.TestDescriptor{Name: name, Min: lo, Max: hi, Polarity: model.LowerIsBetter}
}

func recs(normal, risk, deviation string) map[model.Tier]string {
	return map[model.Tier]string{
		model.TierNormal:    normal,
		model.TierRisk:      risk,
		model.TierDeviation: deviation,
	}
}

// Default returns the built-in battery used by the diagnostic form.
func Default() *Catalog {
	return New(
		Band{
			AgeBand: model.AgeBandInfant,
			Tests: []model.TestDescriptor{
				higher("Bayley Scales (BSID-III)", 0, 150),
				higher("ASQ-3 (проценты)", 0, 100),
				lower("M-CHAT-R/F", 0, 20),
			},
			Recommendations: recs(
				"Развитие соответствует возрасту. Сенсорные игры, общение, массаж.",
				"Лёгкие задержки речи или моторики. Рекомендуется консультация логопеда и невролога.",
				"Выраженные признаки задержки. Требуется срочная диагностика у специалистов.",
			),
		},
		Band{
			AgeBand: model.AgeBandPreschool,
			Tests: []model.TestDescriptor{
				higher("NEPSY-II (stens)", 0, 20),
				higher("KABC-II (IQ)", 40, 160),
				lower("CARS-2", 0, 60),
				higher("Conners EC (T)", 0, 100),
				lower("Stroop (секунды)", 0, 120),
				higher("WPPSI-IV (IQ)", 40, 160),
				higher("Vineland Adaptive", 0, 150),
			},
			Recommendations: recs(
				"Ребёнок справляется с заданиями. Рекомендуются развивающие игры и чтение.",
				"Есть трудности с вниманием. Уменьшите экранное время и обратитесь к нейропсихологу.",
				"Явные отклонения. Нужна индивидуальная коррекция с логопедом и психологом.",
			),
		},
		Band{
			AgeBand: model.AgeBandSchool,
			Tests: []model.TestDescriptor{
				higher("WISC-V (IQ)", 40, 160),
				lower("Stroop (секунды)", 0, 120),
				lower("CPT (ошибки %)", 0, 100),
				lower("TMT A (сек)", 0, 300),
				lower("TMT B (сек)", 0, 300),
				higher("SRS-2 (T)", 0, 120),
				higher("RAVLT (слов)", 0, 15),
				higher("Tower of London (категории)", 0, 6),
				higher("Digit Span (цифры)", 0, 9),
			},
			Recommendations: recs(
				"Когнитивные функции в норме. Продолжайте умственные тренировки.",
				"Есть проблемы с вниманием. Рекомендуется работа с психологом.",
				"Серьёзные трудности. Нужна диагностика у невролога и психиатра.",
			),
		},
		Band{
			AgeBand: model.AgeBandAdolescent,
			Tests: []model.TestDescriptor{
				higher("WCST (категории)", 0, 6),
				lower("TMT B (сек)", 0, 180),
				higher("RAVLT (слов)", 0, 15),
				lower("PHQ-A (баллы)", 0, 27),
				lower("CPT-II (ошибки %)", 0, 100),
				higher("Tower of Hanoi (ходы)", 0, 25),
				lower("Emotional Stroop (разница сек)", 0, 120),
			},
			Recommendations: recs(
				"Подросток в норме. Важно развивать самоконтроль и планирование.",
				"Есть тревожность. Посоветуйтесь с психологом.",
				"Выраженные нарушения. Срочная консультация психиатра.",
			),
		},
		Band{
			AgeBand: model.AgeBandAdult,
			Tests: []model.TestDescriptor{
				higher("MoCA (баллы)", 0, 30),
				higher("WAIS-IV (IQ)", 40, 160),
				higher("WCST (категории)", 0, 6),
				lower("TMT B (сек)", 0, 180),
				lower("Stroop (секунды/ошибки)", 0, 120),
				lower("GAD-7 (баллы)", 0, 21),
				lower("BDI-II (баллы)", 0, 63),
				higher("RAVLT (слов)", 0, 15),
			},
			Recommendations: recs(
				"Когнитивные функции взрослого в норме. Поддерживайте активность.",
				"Есть стресс или тревожность. Поможет психолог.",
				"Выраженная депрессия. Нужна медицинская помощь.",
			),
		},
	)
}
