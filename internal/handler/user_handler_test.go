package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserHandler_SignupAndCheck(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := doJSON(t, router, http.MethodPost, "/signup", map[string]string{"email": "ada@example.com", "name": "Ada"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	id := decodeBody(t, rr)["user_id"]
	require.NotEmpty(t, id)

	rr = doJSON(t, router, http.MethodPost, "/signup", map[string]string{"email": "ada@example.com", "name": "Ada"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doJSON(t, router, http.MethodPost, "/signup", map[string]string{"email": "bob@example.com"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doJSON(t, router, http.MethodPost, "/api/check-user", map[string]string{"email": "ada@example.com"})
	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, true, body["exists"])
	assert.Equal(t, id, body["user_id"])

	rr = doJSON(t, router, http.MethodPost, "/api/check-user", map[string]string{"email": "nobody@example.com"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, false, decodeBody(t, rr)["exists"])

	rr = doJSON(t, router, http.MethodPost, "/api/check-user", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUserHandler_LearningStyle(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := doJSON(t, router, http.MethodPost, "/api/user/learning-style", map[string]string{"email": "ghost@example.com"})
	require.Equal(t, http.StatusNotFound, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, false, body["success"])
	assert.Len(t, body["styles"], 4)

	rr = doJSON(t, router, http.MethodPost, "/api/store-learning-style", map[string]interface{}{
		"email":         "ada@example.com",
		"learningStyle": "auditory",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = doJSON(t, router, http.MethodPost, "/api/store-learning-style", map[string]interface{}{
		"email":         "ada@example.com",
		"learningStyle": "visual",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = doJSON(t, router, http.MethodPost, "/api/user/learning-style", map[string]string{"email": "ada@example.com"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	body = decodeBody(t, rr)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "visual", body["primaryStyle"])
}

func TestUserHandler_PredictLearningStyle(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := doJSON(t, router, http.MethodPost, "/api/predict-learning-style", map[string]string{
		"text": "I love listening to podcasts and talking through ideas out loud",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.NotEmpty(t, decodeBody(t, rr)["learning_style"])

	rr = doJSON(t, router, http.MethodPost, "/api/predict-learning-style", map[string]string{"text": ""})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUserHandler_QuizScores(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := doJSON(t, router, http.MethodPost, "/api/user/quiz-scores", map[string]string{"email": "ada@example.com"})
	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, []interface{}{}, decodeBody(t, rr)["quizScores"])

	rr = doJSON(t, router, http.MethodPost, "/api/store-quiz-score", map[string]interface{}{
		"email":          "ada@example.com",
		"quizId":         "quiz-1",
		"score":          8,
		"correctAnswers": 8,
		"totalQuestions": 10,
		"percentage":     80,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = doJSON(t, router, http.MethodPost, "/api/store-quiz-score", map[string]interface{}{"email": "ada@example.com", "quizId": "quiz-2"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doJSON(t, router, http.MethodPost, "/api/user/quiz-scores", map[string]string{"email": "ada@example.com"})
	require.Equal(t, http.StatusOK, rr.Code)
	scores, ok := decodeBody(t, rr)["quizScores"].([]interface{})
	require.True(t, ok)
	require.Len(t, scores, 1)
	assert.Equal(t, "Quiz", scores[0].(map[string]interface{})["quizName"])
}
