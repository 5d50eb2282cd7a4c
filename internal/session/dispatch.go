package session

import (
	"context"
	"errors"
	"fmt"

	"code-collaboration-studio/internal/domain"
	"code-collaboration-studio/internal/service"
)

// Handle 执行一条客户端命令。失败以 error 事件发送给客户端，并返回给调用方用于日志。
func (s *Session) Handle(ctx context.Context, cmd Command) error {
	err := s.dispatch(ctx, cmd)
	if err == nil {
		return nil
	}
	// 找不到房间已经以 room.not_found 通知
	if cmd.Type == CmdRoomEnter && (errors.Is(err, service.ErrRoomNotFound) || errors.Is(err, service.ErrInvalidRoomCode)) {
		return err
	}
	s.emit(ErrorEvent(err))
	return err
}

func (s *Session) dispatch(ctx context.Context, cmd Command) error {
	switch cmd.Type {
	case CmdRoomEnter:
		return s.Enter(ctx, cmd.Code)
	case CmdRoomExit:
		s.Exit(ctx)
		return nil
	case CmdDocumentSet:
		return s.SetDocument(cmd.Text)
	case CmdChatOpen:
		return s.OpenChat(ctx)
	case CmdChatSend:
		return s.SendChat(ctx, cmd.Content)
	case CmdChatEdit:
		return s.EditChat(ctx, cmd.ID, cmd.Content)
	case CmdChatDelete:
		return s.DeleteChat(ctx, cmd.ID)
	case CmdBoardBegin:
		tool, err := domain.ParseTool(cmd.Tool)
		if err != nil {
			return fmt.Errorf("%w: %v", service.ErrInvalidOperation, err)
		}
		point, err := requirePoint(cmd)
		if err != nil {
			return err
		}
		return s.BeginStroke(tool, point, StyleFor(tool, cmd.Color, cmd.Width))
	case CmdBoardExtend:
		point, err := requirePoint(cmd)
		if err != nil {
			return err
		}
		return s.ExtendStroke(point)
	case CmdBoardDone:
		return s.ReleaseStroke(ctx)
	case CmdBoardText:
		point, err := requirePoint(cmd)
		if err != nil {
			return err
		}
		return s.AddText(ctx, point, cmd.Text, StyleFor(domain.ToolText, cmd.Color, cmd.Width))
	case CmdBoardUndo:
		return s.UndoStroke(ctx)
	case CmdRun:
		return s.Run(ctx, cmd.Stdin)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Type)
	}
}

func requirePoint(cmd Command) (domain.Point, error) {
	if cmd.Point == nil {
		return domain.Point{}, fmt.Errorf("%w: %s needs a point", service.ErrInvalidOperation, cmd.Type)
	}
	return *cmd.Point, nil
}
