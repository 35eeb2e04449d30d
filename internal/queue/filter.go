package queue

import (
	"iter"
	"strings"

	"github.com/xela07ax/libra-console/internal/domain"
)

// Filter возвращает ленивую, перезапускаемую последовательность заявок, у которых запрос
// входит в имя читателя или название книги (без учёта регистра) либо в номер телефона.
// Пустой запрос пропускает всё в исходном порядке. Функция чистая: индекс не строится,
// очереди здесь на десятки-сотни записей.
func Filter(entries []domain.BorrowRequest, query string) iter.Seq[domain.BorrowRequest] {
	needle := strings.ToLower(query)

	return func(yield func(domain.BorrowRequest) bool) {
		for _, e := range entries {
			if !Matches(e, needle) {
				continue
			}
			if !yield(e) {
				return
			}
		}
	}
}

// Matches ожидает уже приведённый к нижнему регистру запрос.
func Matches(e domain.BorrowRequest, lowerQuery string) bool {
	if lowerQuery == "" {
		return true
	}
	// Телефон сравниваем как есть: там цифры
	return strings.Contains(strings.ToLower(e.MemberName), lowerQuery) ||
		strings.Contains(strings.ToLower(e.BookTitle), lowerQuery) ||
		strings.Contains(e.PhoneNumber, lowerQuery)
}
