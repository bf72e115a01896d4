package service

import (
	"math"
	"strings"

	"github.com/percorso-labs/percorso-api/internal/models"
)

// normalizeBoolToken canonicalizes true/false answers, folding the Italian
// synonyms used by the exercise editor into the English tokens.
func normalizeBoolToken(value string) string {
	token := strings.ToLower(strings.TrimSpace(value))
	switch token {
	case "vero":
		return "true"
	case "falso":
		return "false"
	default:
		return token
	}
}

// GradeQuestion scores a single answer against its question definition.
// Auto-gradable questions award full points or zero; a missing answer scores
// zero. Manual question types return ok=false and are left for the
// consultant.
func GradeQuestion(question models.Question, answer models.AnswerValue, present bool) (score int, ok bool) {
	if !question.AutoGradable() {
		return 0, false
	}
	if !present || !answer.Answered() {
		return 0, true
	}

	points := question.MaxPoints()

	switch question.Type {
	case models.QuestionTypeTrueFalse:
		submitted := normalizeBoolToken(answer.Text)
		for _, correct := range question.CorrectAnswers {
			if normalizeBoolToken(correct) == submitted {
				return points, true
			}
		}
		return 0, true

	case models.QuestionTypeMultipleChoice, models.QuestionTypeSelect:
		for _, correct := range question.CorrectAnswers {
			if correct == answer.Text {
				return points, true
			}
		}
		return 0, true

	case models.QuestionTypeMultipleAnswer:
		// Exact set equality: same size, same members. Subsets earn nothing.
		submitted := answer.Items
		if !answer.List {
			submitted = []string{answer.Text}
		}
		if len(submitted) != len(question.CorrectAnswers) {
			return 0, true
		}
		correctSet := make(map[string]struct{}, len(question.CorrectAnswers))
		for _, correct := range question.CorrectAnswers {
			correctSet[correct] = struct{}{}
		}
		for _, item := range submitted {
			if _, found := correctSet[item]; !found {
				return 0, true
			}
		}
		return points, true
	}

	return 0, false
}

// AutoGrades computes grades for every auto-gradable question of the
// exercise. Manual questions are omitted; they default to zero until a
// consultant assigns a value.
func AutoGrades(exercise models.Exercise, answers models.AnswerMap) []models.QuestionGrade {
	questions := exercise.Questions()
	grades := make([]models.QuestionGrade, 0, len(questions))
	for _, question := range questions {
		answer, present := answers[question.ID]
		score, ok := GradeQuestion(question, answer, present)
		if !ok {
			continue
		}
		grades = append(grades, models.QuestionGrade{
			QuestionID: question.ID,
			Score:      score,
			MaxScore:   question.MaxPoints(),
		})
	}
	return grades
}

// TotalScore reconciles per-question grades into a single score on the
// exercise's point scale: round(sum(awarded) / sum(maxPoints) * totalPoints).
// Questions without a grade entry contribute zero awarded points but still
// count toward the maximum.
func TotalScore(exercise models.Exercise, grades []models.QuestionGrade) int {
	questions := exercise.Questions()
	if len(questions) == 0 {
		return 0
	}

	byQuestion := make(map[string]models.QuestionGrade, len(grades))
	for _, grade := range grades {
		byQuestion[grade.QuestionID] = grade
	}

	awarded := 0
	maxTotal := 0
	for _, question := range questions {
		maxTotal += question.MaxPoints()
		if grade, found := byQuestion[question.ID]; found {
			awarded += grade.Score
		}
	}

	if maxTotal <= 0 {
		return 0
	}

	return int(math.Round(float64(awarded) / float64(maxTotal) * float64(exercise.ScaleTarget())))
}

// manualQuestions returns the questions the auto-grader cannot score.
func manualQuestions(exercise models.Exercise) []models.Question {
	var manual []models.Question
	for _, question := range exercise.Questions() {
		if !question.AutoGradable() {
			manual = append(manual, question)
		}
	}
	return manual
}

// mergeGrades overlays consultant-assigned manual grades onto the
// authoritative auto-computed ones. Consultant entries for auto-gradable
// questions are ignored: the calculator's value wins.
func mergeGrades(exercise models.Exercise, auto []models.QuestionGrade, manual []models.QuestionGrade) []models.QuestionGrade {
	autoIDs := make(map[string]struct{}, len(auto))
	for _, grade := range auto {
		autoIDs[grade.QuestionID] = struct{}{}
	}

	merged := make([]models.QuestionGrade, 0, len(auto)+len(manual))
	merged = append(merged, auto...)
	for _, grade := range manual {
		if _, isAuto := autoIDs[grade.QuestionID]; isAuto {
			continue
		}
		merged = append(merged, grade)
	}
	return merged
}

// validateManualGrades checks that every manual question carries a grade in
// [0, maxPoints]. Completion of an auto-correct exam is blocked until this
// holds.
func validateManualGrades(exercise models.Exercise, manual []models.QuestionGrade) error {
	byQuestion := make(map[string]models.QuestionGrade, len(manual))
	for _, grade := range manual {
		byQuestion[grade.QuestionID] = grade
	}

	for _, question := range manualQuestions(exercise) {
		grade, found := byQuestion[question.ID]
		if !found {
			return validationError("question %s requires a manual grade", question.ID)
		}
		if grade.Score < 0 || grade.Score > question.MaxPoints() {
			return validationError("grade for question %s must be between 0 and %d", question.ID, question.MaxPoints())
		}
	}
	return nil
}
