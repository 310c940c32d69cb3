package service

// SetSlugSuffix 测试里替换随机后缀
func (s *CircleService) SetSlugSuffix(fn func(string) string) { s.suffix = fn }

func (s *MomentService) SetSlugSuffix(fn func(string) string) { s.suffix = fn }
