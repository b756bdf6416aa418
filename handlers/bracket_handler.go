package handlers

import (
	"errors"
	"net/http"

	"github.com/brdc/darts-league/middleware"
	"github.com/brdc/darts-league/services"
	"github.com/go-chi/chi/v5"
)

type BracketHandler struct {
	bracketService services.BracketService
}

func NewBracketHandler(bracketService services.BracketService) *BracketHandler {
	return &BracketHandler{bracketService: bracketService}
}

// GenerateBracket godoc
// @Summary Сгенерировать сетку double elimination
// @Tags brackets
// @Description Создает сетку турнира. Тело необязательно: без него участники, прошедшие check-in, посеяны по порядку.
// @Accept json
// @Produce json
// @Param tournamentID path int true "ID турнира"
// @Param body body services.GenerateBracketInput false "Список участников в порядке посева и флаг shuffle"
// @Success 201 {object} map[string]interface{} "Сетка создана"
// @Failure 400 {object} map[string]string "Некорректный запрос"
// @Failure 401 {object} map[string]string "Неавторизован"
// @Failure 403 {object} map[string]string "Нет прав (не организатор)"
// @Failure 404 {object} map[string]string "Турнир не найден"
// @Failure 409 {object} map[string]string "Сетка уже создана или турнир в неподходящем статусе"
// @Failure 422 {object} map[string]string "Недостаточно участников"
// @Failure 500 {object} map[string]string "Внутренняя ошибка сервера"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/bracket [post]
func (h *BracketHandler) GenerateBracket(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.GenerateBracketInput
	if err := readOptionalJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	bracket, err := h.bracketService.GenerateBracket(r.Context(), tournamentID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"bracket": bracket}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetBracket godoc
// @Summary Получить сетку турнира
// @Tags brackets
// @Produce json
// @Param tournamentID path int true "ID турнира"
// @Success 200 {object} map[string]interface{} "Сетка турнира"
// @Failure 400 {object} map[string]string "Некорректный ID"
// @Failure 404 {object} map[string]string "Сетка не найдена"
// @Failure 500 {object} map[string]string "Внутренняя ошибка сервера"
// @Router /tournaments/{tournamentID}/bracket [get]
func (h *BracketHandler) GetBracket(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	bracket, err := h.bracketService.GetBracket(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"bracket": bracket}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// StartMatch godoc
// @Summary Начать матч
// @Tags brackets
// @Description Переводит готовый матч в статус in_progress.
// @Produce json
// @Param tournamentID path int true "ID турнира"
// @Param matchID path string true "ID матча, например WR1M1"
// @Success 200 {object} map[string]interface{} "Матч начат"
// @Failure 401 {object} map[string]string "Неавторизован"
// @Failure 403 {object} map[string]string "Нет прав (не организатор)"
// @Failure 404 {object} map[string]string "Сетка или матч не найдены"
// @Failure 409 {object} map[string]string "Матч не готов или уже завершен"
// @Failure 500 {object} map[string]string "Внутренняя ошибка сервера"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/matches/{matchID}/start [post]
func (h *BracketHandler) StartMatch(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	matchID := chi.URLParam(r, "matchID")
	if matchID == "" {
		badRequestResponse(w, r, errors.New("missing matchID in URL path"))
		return
	}

	match, err := h.bracketService.StartMatch(r.Context(), tournamentID, matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SubmitResult godoc
// @Summary Отправить результат матча
// @Tags brackets
// @Description Победитель задается через winner_id или счет по легам (team1_legs, team2_legs). Необязательное поле game_stats сохраняется как есть. Повтор того же результата возвращает duplicate=true.
// @Accept json
// @Produce json
// @Param tournamentID path int true "ID турнира"
// @Param matchID path string true "ID матча, например WR1M1"
// @Param body body services.SubmitResultInput true "Результат матча"
// @Success 200 {object} services.SubmitResultOutput "Результат применен"
// @Failure 400 {object} map[string]string "Некорректный запрос"
// @Failure 401 {object} map[string]string "Неавторизован"
// @Failure 403 {object} map[string]string "Нет прав (не организатор)"
// @Failure 404 {object} map[string]string "Сетка или матч не найдены"
// @Failure 409 {object} map[string]string "Другой результат уже записан или матч не готов"
// @Failure 422 {object} map[string]string "Ничья или участник не из этого матча"
// @Failure 429 {object} map[string]string "Слишком много запросов"
// @Failure 500 {object} map[string]string "Внутренняя ошибка сервера"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/matches/{matchID}/result [post]
func (h *BracketHandler) SubmitResult(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	matchID := chi.URLParam(r, "matchID")
	if matchID == "" {
		badRequestResponse(w, r, errors.New("missing matchID in URL path"))
		return
	}

	var input services.SubmitResultInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	input.MatchID = matchID
	if userID, err := middleware.GetUserIDFromContext(r.Context()); err == nil {
		input.SubmittedBy = &userID
	}

	out, err := h.bracketService.SubmitMatchResult(r.Context(), tournamentID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, out, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
