package lifecycle

import (
	"reciclaai/internal/httperr"
	"reciclaai/models"
)

// Статусы заявки. CONFIRMED — единственный успешный терминал:
// устаревший COMPLETED сюда не входит и нигде не хранится.
const (
	StatusRequested = "REQUESTED"
	StatusAccepted  = "ACCEPTED"
	StatusAwaiting  = "AWAITING_CONFIRMATION"
	StatusConfirmed = "CONFIRMED"
	StatusCancelled = "CANCELLED"
)

// AllStatuses перечисляет все хранимые статусы
var AllStatuses = []string{
	StatusRequested, StatusAccepted, StatusAwaiting, StatusConfirmed, StatusCancelled,
}

func IsValidStatus(s string) bool {
	for _, v := range AllStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// transition описывает разрешённый переход и роль, которой он доступен
type transition struct {
	from, to string
	role     string
}

// Таблица переходов закрыта: всё, чего здесь нет, запрещено.
// Переход REQUESTED -> ACCEPTED идёт только через операцию accept,
// она назначает коллектора атомарно и в таблице не участвует.
var transitions = []transition{
	{StatusRequested, StatusCancelled, models.RoleProducer},
	{StatusAccepted, StatusAwaiting, models.RoleCollector},
	{StatusAwaiting, StatusConfirmed, models.RoleCooperative},
}

// Authorize проверяет, что переход current -> target существует и доступен роли.
// Возвращает InvalidTransition для пары вне таблицы и Forbidden для чужой роли.
func Authorize(current, target, role string) error {
	if !IsValidStatus(target) {
		return httperr.Validation("unknown status: " + target)
	}
	var found *transition
	for i := range transitions {
		if transitions[i].from == current && transitions[i].to == target {
			found = &transitions[i]
			break
		}
	}
	if found == nil {
		return httperr.InvalidTransition("cannot move from " + current + " to " + target)
	}
	if found.role != role {
		return httperr.Forbidden("role " + role + " may not perform this transition")
	}
	return nil
}

// IsRatable сообщает, допускает ли статус выставление оценки.
// AWAITING_CONFIRMATION принимается наравне с CONFIRMED — поведение
// исходной системы, оставлено до уточнения продукта.
func IsRatable(status string) bool {
	return status == StatusConfirmed || status == StatusAwaiting
}

// CanAssociateCooperative сообщает, допускает ли статус привязку кооператива
func CanAssociateCooperative(status string) bool {
	return status == StatusAccepted || status == StatusAwaiting
}

// CanDelete сообщает, допускает ли статус удаление заявки владельцем
func CanDelete(status string) bool {
	return status == StatusRequested
}
