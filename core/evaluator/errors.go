package evaluator

import "errors"

var (
	errUnknownSignatory      = errors.New("evaluator: signatory account does not exist")
	errUnknownOperation      = errors.New("evaluator: no evaluator registered for this operation kind")
	errAuthorityNotSatisfied = errors.New("evaluator: presented signatures do not satisfy the required authority")
)
