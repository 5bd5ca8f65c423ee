package rpc

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"bizdiag/internal/todo"
)

const TodoServiceName = "bizdiag.v1.TodoService"

type TodoHandler struct {
	list *todo.List
}

func NewTodoHandler(list *todo.List) *TodoHandler {
	return &TodoHandler{list: list}
}

func NewTodoServiceHandler(h *TodoHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	p := func(m string) string { return procedure(TodoServiceName, m) }
	return serviceHandler(TodoServiceName, map[string]http.Handler{
		p("ListTodos"):  unary(p("ListTodos"), h.ListTodos, opts),
		p("AddTodo"):    unary(p("AddTodo"), h.AddTodo, opts),
		p("ToggleTodo"): unary(p("ToggleTodo"), h.ToggleTodo, opts),
		p("DeleteTodo"): unary(p("DeleteTodo"), h.DeleteTodo, opts),
	})
}

func (h *TodoHandler) ListTodos(ctx context.Context, _ *Empty) (*TodosResponse, error) {
	return &TodosResponse{Todos: nonNil(h.list.All(ctx))}, nil
}

func (h *TodoHandler) AddTodo(ctx context.Context, req *TodoRequest) (*TodoResponse, error) {
	t, err := h.list.Add(ctx, req.Text)
	if err != nil {
		return nil, err
	}
	return &TodoResponse{Todo: t}, nil
}

func (h *TodoHandler) ToggleTodo(ctx context.Context, req *TodoRequest) (*TodoResponse, error) {
	if err := required("id", req.ID); err != nil {
		return nil, err
	}
	t, err := h.list.Toggle(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	return &TodoResponse{Todo: t}, nil
}

func (h *TodoHandler) DeleteTodo(ctx context.Context, req *TodoRequest) (*Empty, error) {
	if err := required("id", req.ID); err != nil {
		return nil, err
	}
	if err := h.list.Delete(ctx, req.ID); err != nil {
		return nil, err
	}
	return &Empty{}, nil
}
